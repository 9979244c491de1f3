package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/renshu/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestFieldsJSON(t *testing.T) {
	convey.Convey("Given ordered inputs", t, func() {
		in := model.Fields{
			{Name: "question", Content: "Explain informed consent."},
			{Name: "answer", Content: "It requires..."},
			{Name: "theme", Content: "ethics"},
		}

		convey.Convey("When encoding", func() {
			raw, err := json.Marshal(in)

			convey.Convey("Then keys keep their order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(raw), convey.ShouldEqual,
					`{"question":"Explain informed consent.","answer":"It requires...","theme":"ethics"}`)
			})

			convey.Convey("Then decoding gives the same list back", func() {
				var out model.Fields
				convey.So(json.Unmarshal(raw, &out), convey.ShouldBeNil)
				convey.So(out, convey.ShouldResemble, in)
			})
		})

		convey.Convey("When decoding an object with non-string values", func() {
			var out model.Fields
			err := json.Unmarshal([]byte(`{"b": 3, "a": ["x", "y"], "c": "z"}`), &out)

			convey.Convey("Then values are kept as compact JSON text", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldResemble, model.Fields{
					{Name: "b", Content: "3"},
					{Name: "a", Content: `["x","y"]`},
					{Name: "c", Content: "z"},
				})
			})
		})

		convey.Convey("When decoding something that is not an object", func() {
			var out model.Fields
			err := json.Unmarshal([]byte(`["a"]`), &out)

			convey.Convey("Then an error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestFieldsHelpers(t *testing.T) {
	convey.Convey("Given inputs with a repeated name", t, func() {
		in := model.Fields{{Name: "a", Content: "1"}, {Name: "b", Content: "2"}, {Name: "a", Content: "3"}}

		convey.Convey("Then Get returns the first and Map the last", func() {
			v, ok := in.Get("a")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, "1")
			convey.So(in.Map()["a"], convey.ShouldEqual, "3")
			convey.So(in.Value("missing"), convey.ShouldEqual, "")
		})

		convey.Convey("Then Without drops every occurrence", func() {
			convey.So(in.Without("a"), convey.ShouldResemble, model.Fields{{Name: "b", Content: "2"}})
		})

		convey.Convey("Then Clone is independent", func() {
			c := in.Clone()
			c[0].Content = "changed"
			convey.So(in[0].Content, convey.ShouldEqual, "1")
		})
	})
}

func TestScoreScale(t *testing.T) {
	convey.Convey("Given bare score values", t, func() {
		convey.So(model.InferMax(7), convey.ShouldEqual, 10)
		convey.So(model.InferMax(10), convey.ShouldEqual, 10)
		convey.So(model.InferMax(72), convey.ShouldEqual, 100)
		convey.So(model.Score{Value: 8, Max: 10}.Percent(), convey.ShouldEqual, 80)
		convey.So(model.Score{Value: 8}.Percent(), convey.ShouldEqual, 0)
		convey.So(model.FormatValue(8.50), convey.ShouldEqual, "8.5")
	})
}

func TestGenerationValid(t *testing.T) {
	convey.Convey("Given generation tags", t, func() {
		convey.So(model.GenerationLegacy.Valid(), convey.ShouldBeTrue)
		convey.So(model.GenerationExercise.Valid(), convey.ShouldBeTrue)
		convey.So(model.Generation(0).Valid(), convey.ShouldBeFalse)
		convey.So(model.Generation(4).Valid(), convey.ShouldBeFalse)
		convey.So(model.Generations[0], convey.ShouldEqual, model.GenerationExercise)
	})
}
