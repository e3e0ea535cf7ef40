package utils

import (
	"strings"
	"testing"

	"github.com/geocoder89/mediahub/internal/query"
)

func TestIsUUID(t *testing.T) {
	if !IsUUID("7f1d6b8e-8d3c-4b8f-9a51-2c7e6f0d9a11") {
		t.Fatalf("expected valid uuid")
	}
	for _, bad := range []string{"", "123", "7f1d6b8e8d3c4b8f9a512c7e6f0d9a11", "zzzzzzzz-8d3c-4b8f-9a51-2c7e6f0d9a11"} {
		if IsUUID(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestBuildMediaListCacheKey(t *testing.T) {
	key := BuildMediaListCacheKey(query.Spec{Page: 2, Limit: 10})
	if !strings.HasPrefix(key, "media:list:v1:") || !strings.HasSuffix(key, "|2|10") {
		t.Fatalf("unexpected key %q", key)
	}
}
