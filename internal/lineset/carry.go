package lineset

import "strings"

// CarryAttribution maps a per-line attribution array from one version of a
// file's content to another. Lines matched by LCS keep their attribution;
// inserted or changed lines get the given actor ("" means human/no data).
//
// oldAttr[i] is the attribution of oldContent's line i (0-based). The result
// has one entry per line of newContent.
func CarryAttribution(oldContent, newContent string, oldAttr []string, actor string) []string {
	oldLines := SplitLines(oldContent)
	newLines := SplitLines(newContent)

	if len(oldLines) == 0 {
		result := make([]string, len(newLines))
		for i := range result {
			result[i] = actor
		}
		return result
	}
	if len(newLines) == 0 {
		return nil
	}

	// The DP table is O(m*n); for very large files skip matching and
	// attribute everything to the actor rather than blowing up memory.
	if len(oldLines)*len(newLines) > 25_000_000 {
		result := make([]string, len(newLines))
		for i := range result {
			result[i] = actor
		}
		return result
	}

	matchedNew := lcsMatchedNew(oldLines, newLines)

	result := make([]string, len(newLines))
	for j := range newLines {
		if oldIdx := matchedNew[j]; oldIdx >= 0 {
			if oldIdx < len(oldAttr) {
				result[j] = oldAttr[oldIdx]
			}
		} else {
			result[j] = actor
		}
	}
	return result
}

// lcsMatchedNew computes the LCS of a and b and returns, for each index in
// b, the matched index in a (-1 if the line was inserted or changed).
func lcsMatchedNew(a, b []string) []int {
	m, n := len(a), len(b)

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			switch {
			case a[i-1] == b[j-1]:
				dp[i][j] = dp[i-1][j-1] + 1
			case dp[i-1][j] >= dp[i][j-1]:
				dp[i][j] = dp[i-1][j]
			default:
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	matched := make([]int, n)
	for j := range matched {
		matched[j] = -1
	}
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			matched[j-1] = i - 1
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return matched
}

// SplitLines splits file content into lines without a trailing empty entry
// for content ending in a newline. Empty content has zero lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
