package syncer

import (
	"errors"
	"testing"

	"github.com/MikeTeddyOmondi/syscache/internal/cache"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		wantKey string
		wantVal string
		wantErr bool
	}{
		{name: "valid", msg: `{"key":"x","value":"y"}`, wantKey: "x", wantVal: "y"},
		{name: "empty value", msg: `{"key":"x","value":""}`, wantKey: "x", wantVal: ""},
		{name: "truncated", msg: `{"key":"x","val`, wantErr: true},
		{name: "wrong shape", msg: `["x","y"]`, wantErr: true},
		{name: "missing value", msg: `{"key":"x"}`, wantErr: true},
		{name: "not text", msg: "\xc3\x28", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.New()
			store.Insert("x", "before")
			err := Apply(store, []byte(tt.msg))
			if tt.wantErr {
				var derr *cache.DecodeError
				if !errors.As(err, &derr) {
					t.Fatalf("Apply err = %v, want *cache.DecodeError", err)
				}
				if v, _ := store.Get("x"); v != "before" {
					t.Fatalf("Get(x) = %q after failed apply, want %q", v, "before")
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if v, ok := store.Get(tt.wantKey); !ok || v != tt.wantVal {
				t.Fatalf("Get(%q) = %q, %v; want %q, true", tt.wantKey, v, ok, tt.wantVal)
			}
		})
	}
}
