package relmigrate

import "regexp"

// dateSuffixPattern is ported verbatim from
// original_source/mysql_migration/migrator.py's DATE_SUFFIX_PATTERN: a
// table name ending in _YYYYMMDD, _YYMMDD, _YYYY-MM-DD, or _YY-MM-DD (also
// `_` separated), with an optional `_word` tail.
var dateSuffixPattern = regexp.MustCompile(
	`_(\d{8}|\d{6}|\d{4}[-_]\d{2}[-_]\d{2}|\d{2}[-_]\d{2}[-_]\d{2})(_\w+)?$`,
)

// IsDateSuffixedTable reports whether name ends in a recognizable date
// suffix pattern.
func IsDateSuffixedTable(name string) bool {
	return dateSuffixPattern.MatchString(name)
}
