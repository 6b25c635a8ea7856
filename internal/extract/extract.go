// Package extract discovers table references in SQL query text.
//
// It is a narrowly-scoped heuristic scanner, not a SQL parser: it looks for
// qualified identifiers after read-clause keywords and for explicit write
// targets, and it deliberately does not parse expressions, resolve aliases,
// or validate SQL. Dynamic or templated fragments are best-effort.
package extract

import (
	"regexp"
	"strings"
)

// TableRef is a qualified table name plus its classification layer.
type TableRef struct {
	// Name is the fully qualified <database>.<table> name.
	Name string
	// Layer is the classification bucket derived from the database segment.
	Layer string
}

// Database returns the leading database segment of the qualified name.
func (t TableRef) Database() string {
	if i := strings.IndexByte(t.Name, '.'); i > 0 {
		return t.Name[:i]
	}
	return ""
}

// Result holds the reads and writes discovered in one query.
type Result struct {
	Reads  []string // qualified table names, deduplicated, in discovery order
	Writes []string
}

// Empty reports whether the extraction produced no lineage signal.
func (r Result) Empty() bool {
	return len(r.Reads) == 0 && len(r.Writes) == 0
}

// tokenRe matches dotted identifiers or any single non-space rune.
// Identifiers may carry $ (session variables expanded into names).
var tokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_$]*(?:\.[A-Za-z_][A-Za-z0-9_$]*)*|\S`)

// cteRe matches "name AS (" introducing a named subquery.
var cteRe = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_]*)\s+AS\s*\(`)

// Tables extracts the tables a query reads and the table it writes.
//
// declaredTarget is an out-of-band target from task parameters
// (create_table / insert_into); when present it is authoritative and
// replaces anything inferred from the text. Reads are identifiers
// following FROM or JOIN: qualified names are taken as-is, and bare
// names are qualified with defaultDB when the task declared a default
// database (otherwise they carry no signal and are skipped).
// Identifiers introduced as named subqueries (WITH name AS (...)) are
// excluded. A table that is both the target and a read is kept, so
// self-loops survive into the lineage graph.
//
// Tables is pure and never fails: malformed input yields an empty Result.
func Tables(queryText, declaredTarget, defaultDB string) Result {
	var res Result
	if declaredTarget != "" {
		res.Writes = append(res.Writes, declaredTarget)
	}
	if strings.TrimSpace(queryText) == "" {
		return res
	}

	ctes := cteNames(queryText)
	toks := tokenRe.FindAllString(queryText, -1)

	seenReads := make(map[string]struct{})
	addRead := func(tok string) {
		name := strings.ToLower(tok)
		if !isIdentifier(name) {
			return
		}
		if _, local := ctes[name]; local {
			return
		}
		if _, local := ctes[lastSegment(name)]; local {
			return
		}
		if !isQualified(name) {
			if defaultDB == "" || strings.Contains(name, ".") {
				return
			}
			name = strings.ToLower(defaultDB) + "." + name
		}
		if _, dup := seenReads[name]; dup {
			return
		}
		seenReads[name] = struct{}{}
		res.Reads = append(res.Reads, name)
	}

	for i := 0; i < len(toks); i++ {
		switch strings.ToLower(toks[i]) {
		case "from", "join":
			// Capture the identifier after the keyword, plus any
			// comma-separated continuation (FROM a.b, c.d).
			j := i + 1
			for j < len(toks) {
				addRead(toks[j])
				if j+1 < len(toks) && toks[j+1] == "," {
					j += 2
					continue
				}
				break
			}
		case "into", "table":
			// INSERT INTO x / CREATE TABLE x inferred only when no
			// declared target exists. TABLE counts only after CREATE, so
			// DROP TABLE and ALTER TABLE register no write.
			if declaredTarget != "" {
				continue
			}
			if strings.EqualFold(toks[i], "table") &&
				(i == 0 || !strings.EqualFold(toks[i-1], "create")) {
				continue
			}
			if t := writeTarget(toks, i); t != "" {
				if !containsString(res.Writes, t) {
					res.Writes = append(res.Writes, t)
				}
			}
		}
	}

	return res
}

// cteNames collects identifiers introduced by "name AS (" constructs.
// Keys are lowercased bare names.
func cteNames(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range cteRe.FindAllStringSubmatch(text, -1) {
		out[strings.ToLower(m[1])] = struct{}{}
	}
	return out
}

// writeTarget returns the qualified identifier following INTO/TABLE at
// toks[i], skipping IF NOT EXISTS.
func writeTarget(toks []string, i int) string {
	j := i + 1
	if j+2 < len(toks) &&
		strings.EqualFold(toks[j], "if") &&
		strings.EqualFold(toks[j+1], "not") &&
		strings.EqualFold(toks[j+2], "exists") {
		j += 3
	}
	if j < len(toks) {
		name := strings.ToLower(toks[j])
		if isQualified(name) {
			return name
		}
	}
	return ""
}

// isIdentifier distinguishes (possibly dotted) identifier tokens from
// the single-rune punctuation tokens the scanner also produces.
func isIdentifier(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isQualified(name string) bool {
	i := strings.IndexByte(name, '.')
	return i > 0 && i < len(name)-1 && !strings.Contains(name[i+1:], ".")
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// QualifyTarget normalizes a declared target against a task-level default
// database. A bare table name gets the database prefix; an already
// qualified name is returned lowercased as-is.
func QualifyTarget(target, defaultDB string) string {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return ""
	}
	if strings.Contains(target, ".") || defaultDB == "" {
		return target
	}
	return strings.ToLower(defaultDB) + "." + target
}
