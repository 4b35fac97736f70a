package storage

import (
	"testing"
	"testing/fstest"
)

func TestLoadMigrations_Sorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_late.sql":  {Data: []byte("SELECT 10;")},
		"migrations/002_mid.sql":   {Data: []byte("SELECT 2;")},
		"migrations/001_first.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md":     {Data: []byte("ignored")},
	}
	ms, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	var got []int
	for _, m := range ms {
		got = append(got, m.version)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 10 {
		t.Errorf("versions = %v, want [1 2 10]", got)
	}
	if ms[2].sql != "SELECT 10;" {
		t.Errorf("sql = %q", ms[2].sql)
	}
}

func TestLoadMigrations_Invalid(t *testing.T) {
	for name, fsys := range map[string]fstest.MapFS{
		"no prefix":  {"migrations/init.sql": {Data: []byte("x")}},
		"zero":       {"migrations/000_init.sql": {Data: []byte("x")}},
		"duplicated": {"migrations/001_a.sql": {Data: []byte("x")}, "migrations/001_b.sql": {Data: []byte("y")}},
	} {
		if _, err := loadMigrations(fsys); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
