package inventory

// findCycle checks every parent->child edge of the child-name graph and
// returns the first edge whose child can reach its parent. It runs before
// any typed tree exists.
func findCycle(parents []string, edges map[string][]string) (parent, child string, found bool) {
	for _, p := range parents {
		for _, c := range edges[p] {
			if reaches(c, p, edges) {
				return p, c, true
			}
		}
	}
	return "", "", false
}

// reaches reports whether target is reachable from start, including the
// trivial case start == target.
func reaches(start, target string, edges map[string][]string) bool {
	if start == target {
		return true
	}
	visited := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range edges[cur] {
			if next == target {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
