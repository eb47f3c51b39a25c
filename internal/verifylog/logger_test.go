package verifylog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		code       Code
		wantLevel  Level
		wantVis    Visibility
	}{
		{DebugConfig, LevelDebug, VisibilityPrivileged},
		{ErrorLeadNotFound, LevelError, VisibilityPublic},
		{JobFailed, LevelError, VisibilityPublic},
		{JobTimeout, LevelError, VisibilityPublic},
		{VerifyDomain, LevelInfo, VisibilityPublic},
		{JobCompleted, LevelInfo, VisibilityPublic},
	}
	for _, c := range cases {
		level, vis := classify(c.code)
		require.Equal(t, c.wantLevel, level, "code %s", c.code)
		require.Equal(t, c.wantVis, vis, "code %s", c.code)
	}
}

func TestRecord_Message(t *testing.T) {
	r := Record{Seq: 3, Code: VerifyDomain, Params: map[string]any{"domain": "example.com"}}
	require.JSONEq(t, `{"code":"VERIFY_DOMAIN","params":{"domain":"example.com"}}`, r.Message())
}

func TestRecord_MessageNoParams(t *testing.T) {
	r := Record{Code: JobStarted}
	require.JSONEq(t, `{"code":"JOB_STARTED"}`, r.Message())
}

func TestCapturingSink_Emit(t *testing.T) {
	var sink CapturingSink
	sink.Emit(VerifyDomain, map[string]any{"domain": "example.com"})
	sink.Emit(DebugConfig, nil)

	require.Len(t, sink.Records, 2)
	require.Equal(t, 0, sink.Records[0].Seq)
	require.Equal(t, 1, sink.Records[1].Seq)
	require.Equal(t, LevelInfo, sink.Records[0].Level)
	require.Equal(t, VisibilityPublic, sink.Records[0].Visibility)
	require.Equal(t, LevelDebug, sink.Records[1].Level)
	require.Equal(t, VisibilityPrivileged, sink.Records[1].Visibility)
}

func TestNopSink_DiscardsEverything(t *testing.T) {
	var s NopSink
	s.Emit(VerifyDomain, map[string]any{"x": 1})
}

func TestVisible(t *testing.T) {
	var sink CapturingSink
	sink.Emit(VerifyDomain, nil)
	sink.Emit(DebugConfig, nil)
	sink.Emit(ErrorLeadNotFound, nil)

	pub := Visible(sink.Records, false)
	require.Len(t, pub, 2)
	for _, r := range pub {
		require.Equal(t, VisibilityPublic, r.Visibility)
	}

	priv := Visible(sink.Records, true)
	require.Len(t, priv, 3)
}
