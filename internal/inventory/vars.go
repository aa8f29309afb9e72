package inventory

import (
	"maps"

	"github.com/eniac111/plumbinv/internal/types"
)

// mergeVars returns a new map holding base overlaid with each layer in
// order; later layers win.
func mergeVars(base map[string]string, layers ...map[string]string) map[string]string {
	out := make(map[string]string, len(base))
	maps.Copy(out, base)
	for _, layer := range layers {
		maps.Copy(out, layer)
	}
	return out
}

// upsertHost appends h to hosts, or merges its variables into an earlier
// entry with the same name.
func upsertHost(hosts []types.Host, h types.Host) []types.Host {
	for i := range hosts {
		if hosts[i].Name == h.Name {
			hosts[i].Variables = mergeVars(hosts[i].Variables, h.Variables)
			return hosts
		}
	}
	return append(hosts, h)
}
