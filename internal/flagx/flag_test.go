package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		boolFlags    []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags and positionals ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept as-is",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "value starting with a dash is taken",
			args:         []string{"-s", "-my-secret", "-a", ":8080"},
			allowedFlags: []string{"-s", "-a"},
			want:         []string{"-s", "-my-secret", "-a", ":8080"},
		},
		{
			name:         "next allowed flag is consumed as a value",
			args:         []string{"-c", "-a", ":8080"},
			allowedFlags: []string{"-c", "-a"},
			want:         []string{"-c", "-a"},
		},
		{
			name:         "bool flag does not swallow the next token",
			args:         []string{"-secure", "extra", "-t", "5"},
			allowedFlags: []string{"-t"},
			boolFlags:    []string{"-secure"},
			want:         []string{"-secure", "-t", "5"},
		},
		{
			name:         "bool flag with explicit value",
			args:         []string{"-rotate=false"},
			boolFlags:    []string{"-rotate"},
			want:         []string{"-rotate=false"},
		},
		{
			name:         "multiple allowed flags kept in order",
			args:         []string{"-a", ":8080", "-c", "conf.json", "--other", "x"},
			allowedFlags: []string{"-c", "-a"},
			want:         []string{"-a", ":8080", "-c", "conf.json"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags, tt.boolFlags...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, "", ConfigFile([]string{"-a", ":8080"}))
	assert.Equal(t, "conf.json", ConfigFile([]string{"-a", ":8080", "-c", "conf.json"}))
	assert.Equal(t, "other.json", ConfigFile([]string{"-config", "other.json"}))
	assert.Equal(t, "eq.json", ConfigFile([]string{"--config=eq.json"}))
}
