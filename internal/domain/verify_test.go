package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySettlement(t *testing.T) {
	const userID = "user-1"

	goodIntent := SettlementIntent{
		ID:             "pi_123",
		Status:         IntentStatusSucceeded,
		Currency:       "sek",
		Amount:         12500,
		AmountReceived: 12500,
		MetadataUserID: userID,
	}
	goodExp := SettlementExpectation{IntentID: "pi_123", Amount: 12500, Currency: "sek"}

	tests := []struct {
		name     string
		returned string
		exp      SettlementExpectation
		intent   SettlementIntent
		wantCode string
	}{
		{
			name:     "all checks pass",
			returned: "pi_123",
			exp:      goodExp,
			intent:   goodIntent,
		},
		{
			name:     "no session expectation falls through to processor checks",
			returned: "pi_123",
			exp:      SettlementExpectation{Amount: 12500, Currency: "sek"},
			intent:   goodIntent,
		},
		{
			name:     "returned id differs from expected",
			returned: "pi_other",
			exp:      goodExp,
			intent:   goodIntent,
			wantCode: CodeVerificationFailed,
		},
		{
			name:     "intent not succeeded",
			returned: "pi_123",
			exp:      goodExp,
			intent: func() SettlementIntent {
				i := goodIntent
				i.Status = "requires_payment_method"
				return i
			}(),
			wantCode: CodeNotCompleted,
		},
		{
			name:     "currency compared case insensitively",
			returned: "pi_123",
			exp:      goodExp,
			intent: func() SettlementIntent {
				i := goodIntent
				i.Currency = "SEK"
				return i
			}(),
		},
		{
			name:     "wrong currency",
			returned: "pi_123",
			exp:      goodExp,
			intent: func() SettlementIntent {
				i := goodIntent
				i.Currency = "eur"
				return i
			}(),
			wantCode: CodeCurrencyMismatch,
		},
		{
			name:     "amount short",
			returned: "pi_123",
			exp:      goodExp,
			intent: func() SettlementIntent {
				i := goodIntent
				i.AmountReceived = 12499
				return i
			}(),
			wantCode: CodeAmountMismatch,
		},
		{
			name:     "amount received zero falls back to amount",
			returned: "pi_123",
			exp:      goodExp,
			intent: func() SettlementIntent {
				i := goodIntent
				i.AmountReceived = 0
				return i
			}(),
		},
		{
			name:     "intent belongs to another user",
			returned: "pi_123",
			exp:      goodExp,
			intent: func() SettlementIntent {
				i := goodIntent
				i.MetadataUserID = "user-2"
				return i
			}(),
			wantCode: CodeUserMismatch,
		},
		{
			name:     "missing metadata counts as user mismatch",
			returned: "pi_123",
			exp:      goodExp,
			intent: func() SettlementIntent {
				i := goodIntent
				i.MetadataUserID = ""
				return i
			}(),
			wantCode: CodeUserMismatch,
		},
		{
			name:     "status checked before amount",
			returned: "pi_123",
			exp:      goodExp,
			intent: func() SettlementIntent {
				i := goodIntent
				i.Status = "processing"
				i.AmountReceived = 1
				return i
			}(),
			wantCode: CodeNotCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySettlement(userID, tt.returned, tt.exp, tt.intent)
			if tt.wantCode == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestSettlementIntentReceived(t *testing.T) {
	assert.Equal(t, int64(500), SettlementIntent{Amount: 1000, AmountReceived: 500}.Received())
	assert.Equal(t, int64(1000), SettlementIntent{Amount: 1000}.Received())
}
