package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestWriterSelectsRotatingFile(t *testing.T) {
	require.Equal(t, os.Stdout, Writer(Options{}))

	path := filepath.Join(t.TempDir(), "dipd.log")
	w := Writer(Options{File: path, MaxBackups: 3})
	rotating, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	require.Equal(t, path, rotating.Filename)
	require.Equal(t, 100, rotating.MaxSize)
	require.Equal(t, 3, rotating.MaxBackups)

	_, err := rotating.Write([]byte("{}\n"))
	require.NoError(t, err)
	require.NoError(t, rotating.Close())
	require.FileExists(t, path)
}

func TestMaskField(t *testing.T) {
	require.Equal(t, "create_tree", MaskField("handler", "create_tree").Value.String())
	require.Equal(t, RedactedValue, MaskField("signature", "0xdeadbeef").Value.String())
	require.Equal(t, "", MaskField("signature", "").Value.String())
	require.True(t, Sensitive(" X-Dip-Signature "))
	require.False(t, Sensitive("signer"))
}

func TestHandlerRedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, Options{})).With("passphrase", "hunter2")
	logger.Info("submitted", "signature", "0xdeadbeef", "signer", "dip1qqq", "attempts", 2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "submitted", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, RedactedValue, line["signature"])
	require.Equal(t, RedactedValue, line["passphrase"])
	require.Equal(t, "dip1qqq", line["signer"])
	require.EqualValues(t, 2, line["attempts"])
	require.NotContains(t, buf.String(), "hunter2")
}
