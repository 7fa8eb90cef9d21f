package database

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

var (
	enableRLSRe = regexp.MustCompile(`ALTER TABLE (\w+) ENABLE ROW LEVEL SECURITY`)
	forceRLSRe  = regexp.MustCompile(`ALTER TABLE (\w+) FORCE ROW LEVEL SECURITY`)
	policyRe    = regexp.MustCompile(`CREATE POLICY \w+ ON (\w+)`)
)

func readMigrations(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return err
		}
		b, err := fs.ReadFile(migrationsFS, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		sb.Write(b)
		sb.WriteByte('\n')
		return nil
	})
	if err != nil {
		t.Fatalf("walk migrations: %v", err)
	}
	return sb.String()
}

// The application connects as the role that owns the tables, and owners
// bypass row-level security unless FORCE is set. Without it every
// branch policy is inert and sessions see all branches.
func TestEveryPolicyTableForcesRowLevelSecurity(t *testing.T) {
	sql := readMigrations(t)

	collect := func(re *regexp.Regexp) map[string]bool {
		out := map[string]bool{}
		for _, m := range re.FindAllStringSubmatch(sql, -1) {
			out[m[1]] = true
		}
		return out
	}
	enabled := collect(enableRLSRe)
	forced := collect(forceRLSRe)
	withPolicy := collect(policyRe)

	if len(withPolicy) == 0 {
		t.Fatal("no policies found in migrations")
	}
	for table := range withPolicy {
		if !enabled[table] {
			t.Errorf("table %s has a policy but no ENABLE ROW LEVEL SECURITY", table)
		}
		if !forced[table] {
			t.Errorf("table %s has a policy but no FORCE ROW LEVEL SECURITY", table)
		}
	}
	for table := range enabled {
		if !forced[table] {
			t.Errorf("table %s enables row-level security but does not force it", table)
		}
	}
}
