package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func execute(args ...string) (map[string]any, error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return nil, err
	}
	got := map[string]any{}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		return nil, err
	}
	return got, nil
}

func TestValueCommand(t *testing.T) {
	Convey("Given the value command", t, func() {
		Convey("A strong batting line is priced from its score", func() {
			got, err := execute("value", "--runs", "650", "--balls", "500", "--innings", "10")
			So(err, ShouldBeNil)
			price := got["price"].(map[string]any)
			So(price["value"], ShouldEqual, 800_000)
			So(price["source"], ShouldEqual, "computed")
		})

		Convey("An empty line is priced at the floor", func() {
			got, err := execute("value")
			So(err, ShouldBeNil)
			So(got["price"].(map[string]any)["value"], ShouldEqual, 100_000)
		})

		Convey("Impossible overs are rejected", func() {
			_, err := execute("value", "--overs", "3.7")
			So(err, ShouldNotBeNil)
		})

		Convey("A name with a configured override uses it", func() {
			t.Setenv("FANTASY_CONFIG", writeConfig(t, "value_overrides:\n  star: 2500000\n"))

			got, err := execute("value", "--name", "Star", "--runs", "10", "--balls", "10", "--innings", "1")
			So(err, ShouldBeNil)
			price := got["price"].(map[string]any)
			So(price["value"], ShouldEqual, 2_500_000)
			So(price["source"], ShouldEqual, "override")
		})
	})
}

func TestImportCommand(t *testing.T) {
	Convey("Given a seed file", t, func() {
		path := filepath.Join(t.TempDir(), "seed.csv")
		So(os.WriteFile(path, []byte(`id,name,university,category,total_runs,balls_faced,innings_played,wickets,overs_bowled,runs_conceded
s1,Opener,Uni A,Batsman,650,500,10,0,0,0
s2,Quick,Uni B,Bowler,40,60,8,20,60.0,300
s3,Broken,Uni B,Keeper,1,1,1,0,0,0
`), 0o600), ShouldBeNil)

		Convey("import reports what was loaded", func() {
			got, err := execute("import", path)
			So(err, ShouldBeNil)
			So(got["imported"], ShouldEqual, 2)
			So(got["skipped"], ShouldEqual, 0)
			So(got["failed"], ShouldHaveLength, 1)
		})

		Convey("import without a file is a usage error", func() {
			_, err := execute("import")
			So(err, ShouldNotBeNil)
		})
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
