package fieldspec

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/techopolis/tracker/pkg/choices"
)

func TestMaterialize(t *testing.T) {
	Convey("a select field with choices materializes", t, func() {
		f, err := Materialize(Descriptor{
			Name:     "tool_or_method",
			Type:     TypeSelect,
			Required: true,
			Choices:  choices.List{{Key: "jaws", Label: "JAWS"}, {Key: "nvda", Label: "NVDA"}},
		})
		So(err, ShouldBeNil)
		So(f.Label, ShouldEqual, "Tool Or Method")
		So(f.Choices, ShouldHaveLength, 2)
	})

	Convey("an explicit label wins over the derived one", t, func() {
		f, err := Materialize(Descriptor{Name: "user_impact", Type: TypeTextarea, Label: "Impact on Users"})
		So(err, ShouldBeNil)
		So(f.Label, ShouldEqual, "Impact on Users")
	})

	Convey("unknown types are rejected", t, func() {
		_, err := Materialize(Descriptor{Name: "x", Type: "dropdown"})
		So(err, ShouldNotBeNil)
	})

	Convey("select and radio without choices are rejected", t, func() {
		_, err := Materialize(Descriptor{Name: "x", Type: TypeSelect})
		So(err, ShouldNotBeNil)
		_, err = Materialize(Descriptor{Name: "x", Type: TypeRadio})
		So(err, ShouldNotBeNil)
	})

	Convey("a nameless descriptor is rejected", t, func() {
		_, err := Materialize(Descriptor{Type: TypeText})
		So(err, ShouldNotBeNil)
	})
}

func TestMaterializeAll(t *testing.T) {
	Convey("all problems are aggregated", t, func() {
		_, err := MaterializeAll([]Descriptor{
			{Name: "ok", Type: TypeText},
			{Name: "bad", Type: "nope"},
			{Name: "ok", Type: TypeText},
		})
		So(err, ShouldNotBeNil)
		So(err.(*SchemaError).Problems, ShouldHaveLength, 2)
	})
}

func TestDefaultLabel(t *testing.T) {
	cases := map[string]string{
		"tool_or_method": "Tool Or Method",
		"workarounds":    "Workarounds",
		"user_impact":    "User Impact",
	}
	for in, want := range cases {
		if got := DefaultLabel(in); got != want {
			t.Errorf("DefaultLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSerializeValues(t *testing.T) {
	schema := []Descriptor{
		{
			Name:     "tool_or_method",
			Type:     TypeSelect,
			Required: true,
			Choices:  choices.List{{Key: "jaws", Label: "JAWS"}, {Key: "nvda", Label: "NVDA"}},
		},
		{Name: "retest_date", Type: TypeDate},
		{Name: "screenshot", Type: TypeFile},
		{Name: "verified", Type: TypeCheckbox},
		{Name: "milestone", Type: TypeSelect, Choices: choices.List{{Key: "m1", Label: "M1"}}},
	}

	Convey("values serialize into the bag by field name", t, func() {
		bag, err := SerializeValues(schema, map[string]Value{
			"tool_or_method": Choice("jaws"),
			"retest_date":    Date(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)),
			"screenshot":     FileRef("header-contrast.png"),
			"verified":       Bool(true),
		})
		So(err, ShouldBeNil)
		So(bag["tool_or_method"], ShouldEqual, "jaws")
		So(bag["retest_date"], ShouldEqual, "2026-03-14")
		So(bag["screenshot"], ShouldEqual, "header-contrast.png")
		So(bag["verified"], ShouldEqual, true)
	})

	Convey("reserved names never enter the bag", t, func() {
		bag, err := SerializeValues(schema, map[string]Value{
			"tool_or_method": Choice("nvda"),
			"milestone":      Choice("m1"),
		})
		So(err, ShouldBeNil)
		So(bag, ShouldNotContainKey, "milestone")
	})

	Convey("submitted keys without a descriptor are ignored", t, func() {
		bag, err := SerializeValues(schema, map[string]Value{
			"tool_or_method": Choice("jaws"),
			"stale_field":    Text("left over"),
		})
		So(err, ShouldBeNil)
		So(bag, ShouldNotContainKey, "stale_field")
	})

	Convey("a missing required value is an error", t, func() {
		_, err := SerializeValues(schema, map[string]Value{})
		So(err, ShouldNotBeNil)
	})

	Convey("a choice outside the descriptor's list is an error", t, func() {
		_, err := SerializeValues(schema, map[string]Value{
			"tool_or_method": Choice("voiceover"),
		})
		So(err, ShouldNotBeNil)
	})
}
