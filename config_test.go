package shorty

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func writeProperties(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigValid(t *testing.T) {
	path := writeProperties(t, `
# shorty
port=8888
domain=shorty.com
ttl=60
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8888, cfg.Port)
	assert.Equal(t, "shorty.com", cfg.Domain)
	assert.Equal(t, 60*time.Second, cfg.TTL)

	assert.Equal(t, DefaultSweepInterval, cfg.SweepInterval)
	assert.Equal(t, DefaultCodeLength, cfg.CodeLength)
	assert.Equal(t, DefaultAlphabet, cfg.Alphabet)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
}

func TestLoadConfigOptionalKeys(t *testing.T) {
	path := writeProperties(t, `
port = 9000
domain = sho.rt
ttl = 3600
sweep.interval = 30
code.length = 8
code.alphabet = abcdef0123456789
read.timeout = 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "sho.rt", cfg.Domain)
	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 8, cfg.CodeLength)
	assert.Equal(t, "abcdef0123456789", cfg.Alphabet)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "port missing", content: "domain=shorty.com\nttl=60\n"},
		{name: "port not an integer", content: "port=eighty\ndomain=shorty.com\nttl=60\n"},
		{name: "port out of range", content: "port=70000\ndomain=shorty.com\nttl=60\n"},
		{name: "domain missing", content: "port=8888\nttl=60\n"},
		{name: "domain blank", content: "port=8888\ndomain=   \nttl=60\n"},
		{name: "ttl missing", content: "port=8888\ndomain=shorty.com\n"},
		{name: "ttl zero", content: "port=8888\ndomain=shorty.com\nttl=0\n"},
		{name: "bad sweep interval", content: "port=8888\ndomain=shorty.com\nttl=60\nsweep.interval=soon\n"},
		{name: "bad code length", content: "port=8888\ndomain=shorty.com\nttl=60\ncode.length=0\n"},
		{name: "zero sweep interval", content: "port=8888\ndomain=shorty.com\nttl=60\nsweep.interval=0\n"},
		{name: "negative sweep interval", content: "port=8888\ndomain=shorty.com\nttl=60\nsweep.interval=-5\n"},
		{name: "zero read timeout", content: "port=8888\ndomain=shorty.com\nttl=60\nread.timeout=0\n"},
		{name: "duplicate alphabet symbols", content: "port=8888\ndomain=shorty.com\nttl=60\ncode.alphabet=abcabc\n"},
		{name: "reserved alphabet symbols", content: "port=8888\ndomain=shorty.com\nttl=60\ncode.alphabet=ab/?\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeProperties(t, tt.content))
			require.Error(t, err)
			assert.True(t, xerrors.Is(err, ErrInvalidConfig), "%v", err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "asdfhasjdfhjkaskdfhjasjkdfhjkahsdf.props"))
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrInvalidConfig))
}
