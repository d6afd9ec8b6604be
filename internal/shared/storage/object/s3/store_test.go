package s3

import (
	"strings"
	"testing"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "wells/3/a_well.las", want: "wells/3/a_well.las"},
		{name: "simple prefix", prefix: "las", key: "wells/3/a_well.las", want: "las/wells/3/a_well.las"},
		{name: "prefix trailing slash", prefix: "las/", key: "wells/3/a_well.las", want: "las/wells/3/a_well.las"},
		{name: "prefix and key slashes", prefix: "/las/", key: "/wells/3/a_well.las", want: "las/wells/3/a_well.las"},
		{name: "empty key", prefix: "las", key: "", want: "las"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	c := &countingReader{r: strings.NewReader("~WELL INFORMATION")}
	buf := make([]byte, 4)
	for {
		if _, err := c.Read(buf); err != nil {
			break
		}
	}
	if c.n != int64(len("~WELL INFORMATION")) {
		t.Fatalf("counted %d bytes", c.n)
	}
}
