package database

import (
	"regexp"
	"testing"
	"time"
)

func TestNewMetadataStore(t *testing.T) {
	server := "redis://" + newMiniredisAddr(t)
	tests := []struct {
		name    string
		options StoreOptions
		wantErr bool
	}{
		{"Default is json", StoreOptions{Directory: t.TempDir()}, false},
		{"json", StoreOptions{Type: StoreTypeJSON, Directory: t.TempDir()}, false},
		{"json without directory", StoreOptions{Type: StoreTypeJSON}, true},
		{"sqlite", StoreOptions{Type: StoreTypeSQLite, ConnectionString: ":memory:"}, false},
		{"redis", StoreOptions{Type: StoreTypeRedis, ConnectionString: server}, false},
		{"unknown", StoreOptions{Type: "mongo"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewMetadataStore(tt.options)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMetadataStore error = %v, wantErr %v", err, tt.wantErr)
			}
			if store != nil {
				_ = store.Close()
			}
		})
	}
}

func TestNewImageFilename_FormatAndUniqueness(t *testing.T) {
	pattern := regexp.MustCompile(`^image_[0-9a-f]{8}_1700000000\.png$`)
	now := time.Unix(1700000000, 0)

	const n = 256
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		got := NewImageFilename(now)
		if !pattern.MatchString(got) {
			t.Fatalf("NewImageFilename returned invalid format: %q", got)
		}
		if _, dup := seen[got]; dup {
			t.Fatalf("NewImageFilename returned duplicate: %q", got)
		}
		seen[got] = struct{}{}
	}
}
