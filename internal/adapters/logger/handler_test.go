package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/rig/internal/adapters/logger"
)

func TestPrettyHandler_Handle_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		msg        string
		goldenName string
	}{
		{name: "info level", level: slog.LevelInfo, msg: "information message", goldenName: "handler_info"},
		{name: "warn level", level: slog.LevelWarn, msg: "warning message", goldenName: "handler_warn"},
		{name: "error level", level: slog.LevelError, msg: "error message", goldenName: "handler_error"},
		{name: "debug level filtered", level: slog.LevelDebug, msg: "debug message", goldenName: "handler_debug_filtered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			lg := slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			lg.Log(t.Context(), tt.level, tt.msg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	tests := []struct {
		name string
		log  func(lg *slog.Logger)
		want string
	}{
		{
			name: "group applies to later attrs only",
			log: func(lg *slog.Logger) {
				lg.With("run", "42").WithGroup("target").Info("finished", "name", "compile")
			},
			want: "finished run=42 target.name=compile\n",
		},
		{
			name: "groups nest",
			log: func(lg *slog.Logger) {
				lg.WithGroup("run").WithGroup("target").Info("started", "name", "pack")
			},
			want: "started run.target.name=pack\n",
		},
		{
			name: "group values flatten",
			log: func(lg *slog.Logger) {
				lg.Info("cached", slog.Group("artifact", "path", "artifacts/app.zip", "size", 12))
			},
			want: "cached artifact.path=artifacts/app.zip artifact.size=12\n",
		},
		{
			name: "ambiguous values are quoted",
			log: func(lg *slog.Logger) {
				lg.Info("copied", "from", "My Docs/app.zip", "label", "")
			},
			want: "copied from=\"My Docs/app.zip\" label=\"\"\n",
		},
		{
			name: "empty attrs are dropped",
			log: func(lg *slog.Logger) {
				lg.Info("done", slog.Attr{}, slog.Group("empty"))
			},
			want: "done\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			tt.log(slog.New(logger.NewPrettyHandler(buf, nil)))

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrettyHandler_MultilineIndent(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := slog.New(logger.NewPrettyHandler(buf, nil))

	lg.Error("Error: build failed\n       target: test\n\n  Caused by:\n    → exit status 1")
	lg.Info("first\nsecond")

	want := "✗ Error: build failed\n" +
		"         target: test\n" +
		"\n" +
		"    Caused by:\n" +
		"      → exit status 1\n" +
		"first\nsecond\n"
	assert.Equal(t, want, buf.String())
}

func TestPrettyHandler_LevelVarStaysLive(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	buf := &bytes.Buffer{}
	lg := slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}))

	lg.Info("hidden")
	level.Set(slog.LevelInfo)
	lg.Info("shown")

	assert.Equal(t, "shown\n", buf.String())
}
