package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitWritesFileLog(t *testing.T) {
	dir := t.TempDir()
	var ann bytes.Buffer
	if err := Init(Options{Dir: dir, Annotations: &ann}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Options{}) })

	LogInfo("card rendered", zap.String("card", "languages"), zap.Float64("percent", 42.5))
	LogError("fetch failed", zap.Error(errors.New("boom")))
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"INFO card rendered", `"card":"languages"`, `"percent":42.5`, "ERROR fetch failed", `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}

	if got := ann.String(); got != "::error::fetch failed: boom\n" {
		t.Errorf("annotation = %q", got)
	}
}

func TestEscapeWorkflowData(t *testing.T) {
	got := escapeWorkflowData("100%\nsecond line")
	if got != "100%25%0Asecond line" {
		t.Errorf("escapeWorkflowData = %q", got)
	}
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	LogSuccess("no logger yet")
	LogWarn("still fine")
	LogDebug("debug")
	LogResponse("id", 500, 10, zap.String("endpoint", "/x"))
}

func readLog(t *testing.T, dir string) string {
	t.Helper()
	Sync()
	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	dir := t.TempDir()
	if err := Init(Options{Dir: dir}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Options{}) })

	LogRequest("req-1", "GET", "/users/current/stats/last_7_days")
	LogResponse("req-1", 200, 12, zap.String("endpoint", "/users/current/stats/last_7_days"))
	RequestLogger("req-2").Info("retry scheduled", zap.Int("attempt", 2))

	out := readLog(t, dir)
	if got := strings.Count(out, `"request_id":"req-1"`); got != 2 {
		t.Errorf("req-1 appears %d times:\n%s", got, out)
	}
	for _, want := range []string{`"method":"GET"`, `"status_code":200`, `"request_id":"req-2"`, `"attempt":2`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestLogJSONDebugOnly(t *testing.T) {
	dir := t.TempDir()
	if err := Init(Options{Dir: dir, Debug: true}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Options{}) })

	LogJSON([]byte(`{"data":{"range":"last_7_days"}}`), "WakaTime stats response")
	LogJSON([]byte(`not json`), "broken payload")

	out := readLog(t, dir)
	for _, want := range []string{"DEBUG WakaTime stats response", `"range": "last_7_days"`, `"response":"not json"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}

	quiet := t.TempDir()
	if err := Init(Options{Dir: quiet}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	LogJSON([]byte(`{"a":1}`), "hidden payload")
	if out := readLog(t, quiet); strings.Contains(out, "hidden payload") {
		t.Errorf("payload logged without debug:\n%s", out)
	}
}

func TestInitClosesPreviousLogFile(t *testing.T) {
	if err := Init(Options{Dir: t.TempDir()}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Options{}) })
	first := fileWriter
	if first == nil {
		t.Fatal("no log file opened")
	}

	second := t.TempDir()
	if err := Init(Options{Dir: second}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := first.file.Write([]byte("late line\n")); err == nil {
		t.Error("previous app.log handle still open")
	}

	LogInfo("after reinit")
	if out := readLog(t, second); !strings.Contains(out, "after reinit") {
		t.Errorf("new log missing entry:\n%s", out)
	}

	if err := Init(Options{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if fileWriter != nil {
		t.Error("writer kept after disabling the file log")
	}
}
