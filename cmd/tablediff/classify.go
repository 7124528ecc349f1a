package tablediff

// keySets is the disjoint partition of all keys from both datasets.
// onlyLeft and common follow the left dataset's first-seen order,
// onlyRight the right dataset's, so repeated runs on identical input
// produce byte-identical output.
type keySets struct {
	onlyLeft  []string
	onlyRight []string
	common    []string
}

// classifyKeys partitions the keys of the two indexes. Every key from
// either side lands in exactly one of the three sets.
func classifyKeys(left, right *datasetIndex) keySets {
	var sets keySets

	for _, k := range left.order {
		if right.has(k) {
			sets.common = append(sets.common, k)
		} else {
			sets.onlyLeft = append(sets.onlyLeft, k)
		}
	}

	for _, k := range right.order {
		if !left.has(k) {
			sets.onlyRight = append(sets.onlyRight, k)
		}
	}

	return sets
}
