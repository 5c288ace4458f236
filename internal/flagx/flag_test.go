package flagx

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "campusfeed.json", "-a", ":8080"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "campusfeed.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-redis", "localhost:6379"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "several stages share os.Args",
			args:    []string{"-env", ".env.local", "-c", "conf.json", "-post-ttl", "30m"},
			allowed: []string{"-env"},
			want:    []string{"-env", ".env.local"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-env"},
			allowed: []string{"-env"},
			want:    []string{"-env"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "-log-backend", "zap"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "repeated flag keeps order",
			args:    []string{"-c", "one.json", "-c", "two.json"},
			allowed: []string{"-c"},
			want:    []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:    "nothing allowed present",
			args:    []string{"-a", ":8080", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("FilterArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"server", "-a", ":8080", "-c", "/etc/campusfeed.json"}
	assert.Equal(t, "/etc/campusfeed.json", JsonConfigFlags())

	os.Args = []string{"server", "-config=/etc/alt.json"}
	assert.Equal(t, "/etc/alt.json", JsonConfigFlags())

	os.Args = []string{"server", "-a", ":8080"}
	assert.Empty(t, JsonConfigFlags())
}

func TestEnvFileFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"server", "-env", ".env.test", "-c", "x.json"}
	assert.Equal(t, ".env.test", EnvFileFlags())

	os.Args = []string{"server"}
	assert.Empty(t, EnvFileFlags())
}
