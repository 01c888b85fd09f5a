package storage

import (
	"testing"
	"time"

	"gopkg.in/yaml.v2"
)

func TestKVConfig_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{
			name:    "valid/canonical case",
			config:  `storageDir: ./tempTestDir3012705204`,
			wantErr: false,
		},
		{
			name:    "no storage path",
			config:  `someOtherKey: "hello"`,
			wantErr: true,
		},
		{
			name:    "empty storage path",
			config:  `storageDir: ""`,
			wantErr: true,
		},
		{
			name:    "not a map",
			config:  `[]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c KVConfig
			err := yaml.Unmarshal([]byte(tt.config), &c)
			if (err != nil) != tt.wantErr {
				t.Errorf("got error %v, wantErr is %v", err, tt.wantErr)
			}
		})
	}
}

func TestEntry_Live(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{
			name:  "permanent entry",
			entry: Entry{TenantID: "t1", Key: "k"},
			want:  true,
		},
		{
			name:  "expiry in the future",
			entry: Entry{TenantID: "t1", Key: "k", ExpiresAt: &future},
			want:  true,
		},
		{
			name:  "expiry in the past",
			entry: Entry{TenantID: "t1", Key: "k", ExpiresAt: &past},
			want:  false,
		},
		{
			name:  "flagged expired",
			entry: Entry{TenantID: "t1", Key: "k", Expired: true},
			want:  false,
		},
		{
			name:  "expiry exactly now",
			entry: Entry{TenantID: "t1", Key: "k", ExpiresAt: &now},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Live(now); got != tt.want {
				t.Errorf("Live() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_Size(t *testing.T) {
	e := Entry{TenantID: "t1", Key: "greeting", Data: "hello"}
	if got, want := e.Size(), uint64(13); got != want {
		t.Errorf("Size() = %v, want %v", got, want)
	}
}
