package choices

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	t.Run("valid input", func(t *testing.T) {
		Convey("parse splits on the first comma only", t, func() {
			list, err := Parse("audit, Audit\nremediation, Remediation, Phase Two")
			So(err, ShouldBeNil)
			So(list, ShouldResemble, List{
				{Key: "audit", Label: "Audit"},
				{Key: "remediation", Label: "Remediation, Phase Two"},
			})
		})

		Convey("blank lines and surrounding whitespace are ignored", t, func() {
			list, err := Parse("\n  audit ,  Audit  \n\n")
			So(err, ShouldBeNil)
			So(list, ShouldResemble, List{{Key: "audit", Label: "Audit"}})
		})

		Convey("empty text yields an empty list", t, func() {
			list, err := Parse("   \n \n")
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 0)
		})
	})

	t.Run("invalid input", func(t *testing.T) {
		Convey("a line without a comma is rejected", t, func() {
			_, err := Parse("audit Audit")
			So(err, ShouldNotBeNil)
		})

		Convey("empty key or label is rejected", t, func() {
			_, err := Parse(", Audit\naudit, ")
			verr := &ValidationError{}
			So(err, ShouldHaveSameTypeAs, verr)
			So(err.(*ValidationError).Problems, ShouldHaveLength, 2)
		})

		Convey("duplicate keys are aggregated, not fail-fast", t, func() {
			_, err := Parse("a, A\nbad line\na, Again\nb, B\nb, Bee")
			So(err, ShouldNotBeNil)
			problems := err.(*ValidationError).Problems
			// one bad line plus two distinct duplicate keys
			So(problems, ShouldHaveLength, 3)
		})

		Convey("duplicate detection is case-sensitive", t, func() {
			list, err := Parse("a, Lower\nA, Upper")
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
		})
	})
}

func TestFormatRoundTrip(t *testing.T) {
	Convey("Format then Parse is the identity", t, func() {
		original := List{
			{Key: "audit", Label: "Audit"},
			{Key: "remediation", Label: "Remediation, Phase Two"},
		}
		parsed, err := Parse(Format(original))
		So(err, ShouldBeNil)
		So(parsed, ShouldResemble, original)
	})
}

func TestResolveLabel(t *testing.T) {
	accessibility := List{
		{Key: "audit", Label: "Audit"},
		{Key: "remediation", Label: "Remediation"},
	}

	Convey("a known key resolves to its label", t, func() {
		So(ResolveLabel(accessibility, "audit"), ShouldEqual, "Audit")
	})

	Convey("keys and stored choices are trimmed before compare", t, func() {
		padded := List{{Key: " audit ", Label: " Audit "}}
		So(ResolveLabel(padded, "audit"), ShouldEqual, "Audit")
		So(ResolveLabel(accessibility, " audit "), ShouldEqual, "Audit")
	})

	Convey("an unknown key falls back to the raw key", t, func() {
		So(ResolveLabel(accessibility, "unknown_key"), ShouldEqual, "unknown_key")
	})

	Convey("an empty list falls back to the raw key, not a default label", t, func() {
		So(ResolveLabel(nil, "not_started"), ShouldEqual, "not_started")
	})
}

func TestJSONShape(t *testing.T) {
	Convey("a list marshals as an array of [key, label] pairs", t, func() {
		data, err := json.Marshal(List{{Key: "audit", Label: "Audit"}})
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `[["audit","Audit"]]`)

		var back List
		So(json.Unmarshal(data, &back), ShouldBeNil)
		So(back, ShouldResemble, List{{Key: "audit", Label: "Audit"}})
	})

	Convey("a pair with the wrong arity is rejected", t, func() {
		var back List
		err := json.Unmarshal([]byte(`[["audit"]]`), &back)
		So(err, ShouldNotBeNil)
	})
}
