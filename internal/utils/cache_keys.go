package utils

import "github.com/geocoder89/mediahub/internal/query"

func BuildMediaListCacheKey(spec query.Spec) string {
	return "media:list:v1:" + spec.CacheKey()
}
