// Package scheduler topologically sorts and levels a table set by its
// foreign-key edges, translated line-for-line (Go idiom: slices instead of
// Python sets/dicts) from
// original_source/mysql_migration/migrator.py's topological_sort and
// group_tables_by_dependency_level (C5).
package scheduler

import (
	"sort"

	"github.com/rs/zerolog/log"

	"pgmigrate/internal/model"
)

// Sort returns a total ordering of tables such that every edge (child,
// parent) places parent before child, breaking ties lexicographically
// (Kahn's algorithm, queue re-sorted on every pop). On cycle, it warns,
// appends the remaining tables in sorted order, and still returns a
// permutation of the input.
func Sort(tables []string, edges model.FKEdgeSet) []string {
	tableSet := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		tableSet[t] = struct{}{}
	}

	inDegree := make(map[string]int, len(tables))
	children := make(map[string][]string, len(tables))
	for _, t := range tables {
		inDegree[t] = 0
	}
	for child, parents := range edges {
		if _, ok := tableSet[child]; !ok {
			continue
		}
		for parent := range parents {
			if _, ok := tableSet[parent]; !ok || parent == child {
				continue
			}
			children[parent] = append(children[parent], child)
			inDegree[child]++
		}
	}

	var queue []string
	for _, t := range tables {
		if inDegree[t] == 0 {
			queue = append(queue, t)
		}
	}

	result := make([]string, 0, len(tables))
	for len(queue) > 0 {
		sort.Strings(queue)
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, child := range children[current] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(result) != len(tables) {
		placed := make(map[string]struct{}, len(result))
		for _, t := range result {
			placed[t] = struct{}{}
		}
		var remaining []string
		for _, t := range tables {
			if _, ok := placed[t]; !ok {
				remaining = append(remaining, t)
			}
		}
		sort.Strings(remaining)
		log.Warn().Strs("remaining", remaining).Msg("cyclic foreign-key reference detected, appending remaining tables")
		result = append(result, remaining...)
	}

	return result
}

// Levels groups tables into ordered levels such that every edge goes from a
// lower level to a higher one and tables within a level are mutually
// independent. On cycle, the remainder is dumped into one final sorted
// pseudo-level and scheduling continues — the scheduler never drops a
// table.
func Levels(tables []string, edges model.FKEdgeSet) [][]string {
	tableSet := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		tableSet[t] = struct{}{}
	}

	remaining := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		remaining[t] = struct{}{}
	}
	processed := make(map[string]struct{}, len(tables))

	var levels [][]string

	for len(remaining) > 0 {
		var current []string
		for t := range remaining {
			deps := edges[t]
			unmet := false
			for p := range deps {
				if _, inSet := tableSet[p]; !inSet {
					continue
				}
				if _, done := processed[p]; !done {
					unmet = true
					break
				}
			}
			if !unmet {
				current = append(current, t)
			}
		}

		if len(current) == 0 {
			// Cyclic reference: dump the remainder as one pseudo-level.
			current = make([]string, 0, len(remaining))
			for t := range remaining {
				current = append(current, t)
			}
			log.Warn().Strs("remaining", current).Msg("cyclic foreign-key reference detected, emitting remainder as one level")
		}

		sort.Strings(current)
		levels = append(levels, current)
		for _, t := range current {
			processed[t] = struct{}{}
			delete(remaining, t)
		}
	}

	return levels
}
