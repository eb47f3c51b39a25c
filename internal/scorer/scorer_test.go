package scorer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/mailverify/internal/provider"
)

func TestScore_BaseSignals(t *testing.T) {
	v := Score(Signals{MXFound: true, SPFPresent: true, DMARCPresent: true, Provider: provider.Google})
	require.Equal(t, 85, v.Score) // 35 + 20 + 10 + 10 + 10, not attempted/not blocked -> risky
	require.Equal(t, StatusRisky, v.Status)
}

func TestScore_AcceptedNotCatchAll(t *testing.T) {
	v := Score(Signals{MXFound: true, SMTPAttempted: true, AcceptedAny: true})
	require.Equal(t, StatusValid, v.Status)
	require.Equal(t, 80, v.Score) // 35 + 20 + 25
}

func TestScore_AcceptedCatchAll(t *testing.T) {
	catchAll := true
	v := Score(Signals{MXFound: true, SMTPAttempted: true, AcceptedAny: true, CatchAll: &catchAll})
	require.Equal(t, StatusRisky, v.Status)
	require.Equal(t, 55, v.Score) // 35 + 20 - 10 + 10
}

func TestScore_HardRejection(t *testing.T) {
	v := Score(Signals{MXFound: true, SMTPAttempted: true, DetailAny: "Rejected (550)"})
	require.Equal(t, StatusInvalid, v.Status)
	require.Equal(t, 25, v.Score) // 35 + 20 - 30 = 25
}

func TestScore_HardRejectionFloor(t *testing.T) {
	v := Score(Signals{MXFound: false, SMTPAttempted: true, DetailAny: "Rejected (550)"})
	require.Equal(t, StatusInvalid, v.Status)
	require.Equal(t, 5, v.Score) // 35 - 30 = 5, floor doesn't matter here but check clamp path
}

func TestScore_Inconclusive(t *testing.T) {
	v := Score(Signals{MXFound: true, SMTPAttempted: true, DetailAny: "SMTP error: Timeout"})
	require.Equal(t, StatusUnknown, v.Status)
}

func TestScore_BlockedWithOtherSignal(t *testing.T) {
	v := Score(Signals{MXFound: true, SPFPresent: true, SMTPBlocked: true})
	require.Equal(t, StatusRisky, v.Status)
}

func TestScore_BlockedNoOtherSignalFloor(t *testing.T) {
	v := Score(Signals{MXFound: true, SMTPBlocked: true})
	require.Equal(t, StatusRisky, v.Status)
	require.GreaterOrEqual(t, v.Score, 50)
}

func TestScore_BlockedNoMX(t *testing.T) {
	v := Score(Signals{MXFound: false, SMTPBlocked: true})
	require.Equal(t, StatusUnknown, v.Status)
}

func TestScore_NotAttemptedNoMX(t *testing.T) {
	v := Score(Signals{MXFound: false})
	require.Equal(t, StatusUnknown, v.Status)
}

func TestStatusRank(t *testing.T) {
	require.True(t, StatusValid.Rank() > StatusRisky.Rank())
	require.True(t, StatusRisky.Rank() > StatusUnknown.Rank())
	require.True(t, StatusUnknown.Rank() > StatusInvalid.Rank())
}

func TestEarlyTerminations(t *testing.T) {
	require.Equal(t, Verdict{Score: 0, Status: StatusInvalid, Reason: "Malformed email address"}, MalformedAddress())
	require.Equal(t, Verdict{Score: 0, Status: StatusInvalid, Reason: "Disposable email domain"}, Disposable())
	require.Equal(t, Verdict{Score: 5, Status: StatusInvalid, Reason: "No MX records (or DNS failed)"}, NoMX())
}

func TestClamp(t *testing.T) {
	require.Equal(t, 0, clamp(-5))
	require.Equal(t, 100, clamp(150))
	require.Equal(t, 42, clamp(42))
}
