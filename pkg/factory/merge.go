package factory

import "github.com/mohae/deepcopy"

// Merge deep-merges src into target and returns target. Nested objects
// are unioned key by key, creating them in target when absent; any other
// value overwrites. Values taken from src are copied so target never
// shares structure with it.
func Merge(target, src map[string]any) map[string]any {
	if target == nil {
		target = make(map[string]any, len(src))
	}
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			target[k] = deepcopy.Copy(v)
			continue
		}
		dst, ok := target[k].(map[string]any)
		if !ok {
			dst = make(map[string]any, len(sub))
			target[k] = dst
		}
		Merge(dst, sub)
	}
	return target
}
