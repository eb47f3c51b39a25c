package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/mailverify/internal/candidates"
	"github.com/yourusername/mailverify/internal/scorer"
	"github.com/yourusername/mailverify/internal/verifylog"
)

func TestSplitAddress(t *testing.T) {
	cases := []struct {
		email      string
		wantLocal  string
		wantDomain string
		wantOK     bool
	}{
		{"jane@example.com", "jane", "example.com", true},
		{"jane@localhost", "", "", false},
		{"@example.com", "", "", false},
		{"jane@", "", "", false},
		{"jane example@example.com", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		local, domain, ok := splitAddress(c.email)
		require.Equal(t, c.wantOK, ok, c.email)
		if ok {
			require.Equal(t, c.wantLocal, local)
			require.Equal(t, c.wantDomain, domain)
		}
	}
}

func TestVerifyEmail_MalformedAddress(t *testing.T) {
	res := VerifyEmail(context.Background(), "not-an-email", domainInfo{}, Config{}, verifylog.NopSink{}, NopSentinel)
	require.Equal(t, scorer.StatusInvalid, res.Status)
	require.Equal(t, 0, res.Score)
}

func TestVerifyEmail_DisposableDomain(t *testing.T) {
	res := VerifyEmail(context.Background(), "someone@mailinator.com", domainInfo{mxHosts: []string{"mx.mailinator.com"}}, Config{}, verifylog.NopSink{}, NopSentinel)
	require.Equal(t, scorer.StatusInvalid, res.Status)
	require.Equal(t, "Disposable email domain", res.Reason)
}

func TestVerifyEmail_NoMX(t *testing.T) {
	info := domainInfo{mxErr: dnsprobeErr()}
	res := VerifyEmail(context.Background(), "someone@example.com", info, Config{}, verifylog.NopSink{}, NopSentinel)
	require.Equal(t, scorer.StatusInvalid, res.Status)
	require.Equal(t, 5, res.Score)
}

func TestVerifyEmail_SMTPBlockedSkipsProbe(t *testing.T) {
	info := domainInfo{mxHosts: []string{"mx1.example.com"}, smtpBlocked: true}
	res := VerifyEmail(context.Background(), "someone@example.com", info, Config{}, verifylog.NopSink{}, NopSentinel)
	require.False(t, res.SMTPAttempted)
	require.True(t, res.SMTPBlocked)
}

func TestResultFromVerdict_SignalsReflectDomainInfo(t *testing.T) {
	info := domainInfo{mxHosts: []string{"mx1"}, spf: true, dmarc: false}
	res := resultFromVerdict("x@example.com", scorer.Verdict{Score: 50, Status: scorer.StatusRisky, Reason: "r"}, info)
	require.Contains(t, res.Signals, "mx=true")
	require.Contains(t, res.Signals, "spf=true")
	require.Contains(t, res.Signals, "dmarc=false")
}

func TestVerifyAndPickBest_NoCandidates(t *testing.T) {
	cands, best, result, probeResults := VerifyAndPickBest(context.Background(), "Jane", "", "example.com", Config{}, verifylog.NopSink{}, NopSentinel, nil)
	require.Nil(t, cands)
	require.Equal(t, "", best)
	require.Nil(t, result)
	require.Empty(t, probeResults)
}

func TestDominates(t *testing.T) {
	higherScore := Result{Score: 80, Status: scorer.StatusRisky}
	lowerScore := Result{Score: 50, Status: scorer.StatusValid}
	require.True(t, dominates(higherScore, lowerScore))
	require.False(t, dominates(lowerScore, higherScore))

	sameScoreHigherStatus := Result{Score: 50, Status: scorer.StatusValid}
	sameScoreLowerStatus := Result{Score: 50, Status: scorer.StatusRisky}
	require.True(t, dominates(sameScoreHigherStatus, sameScoreLowerStatus))
	require.False(t, dominates(sameScoreLowerStatus, sameScoreHigherStatus))

	tie := Result{Score: 50, Status: scorer.StatusRisky}
	require.False(t, dominates(tie, tie))
}

func TestVerifyAndPickBest_EmptyDomainYieldsNoCandidates(t *testing.T) {
	cfg := Config{CandidateOpts: candidates.Options{EnabledIndices: []int{0}}}
	cands, _, _, _ := VerifyAndPickBest(context.Background(), "Jane", "Doe", "", cfg, verifylog.NopSink{}, NopSentinel, nil)
	require.Nil(t, cands)
}

func dnsprobeErr() error {
	return errTest{}
}

type errTest struct{}

func (errTest) Error() string { return "no mx" }
