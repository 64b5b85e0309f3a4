package voxport_test

import (
	"reflect"
	"testing"

	"github.com/voxport/voxport"
)

func pitd() *voxport.Curve {
	desc, err := voxport.NewProject().Expression(voxport.PITD)
	if err != nil {
		panic(err)
	}
	return voxport.NewCurve(desc)
}

func TestCurveSetPolyline(t *testing.T) {
	c := pitd()
	c.Set(0, 0, 0, 0)
	c.Set(100, 10, 0, 0)
	c.Set(50, 99, 0, 0)
	if expected := []int{0, 50, 100}; !reflect.DeepEqual(c.Xs, expected) {
		t.Fatalf("got ticks %v, expected %v", c.Xs, expected)
	}
	// rewriting the span from the anchor drops the point in between
	c.Set(100, 20, 0, 0)
	expected := []voxport.CurvePoint{{Tick: 0, Value: 0}, {Tick: 100, Value: 20}}
	if got := c.Points(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("got points %v, expected %v", got, expected)
	}
}

func TestCurveSetInsertsMissingAnchor(t *testing.T) {
	c := pitd()
	c.Set(200, 50, 100, 7)
	expected := []voxport.CurvePoint{{Tick: 100, Value: 7}, {Tick: 200, Value: 50}}
	if got := c.Points(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("got points %v, expected %v", got, expected)
	}
	// an existing anchor keeps its value
	c.Set(300, 1, 100, -999)
	if v, _ := c.Query(100); v != 7 {
		t.Fatalf("anchor value was overwritten: %v", v)
	}
}

func TestCurveSetAnchorAfterTick(t *testing.T) {
	c := pitd()
	for _, x := range []int{0, 100, 200, 300} {
		c.Set(x, x, x, x)
	}
	c.Set(100, 5, 300, 9)
	expected := []voxport.CurvePoint{{Tick: 0, Value: 0}, {Tick: 100, Value: 5}, {Tick: 300, Value: 300}}
	if got := c.Points(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("got points %v, expected %v", got, expected)
	}
}

func TestCurveQuery(t *testing.T) {
	c := pitd()
	if _, ok := c.Query(0); ok {
		t.Fatal("empty curve should report no value")
	}
	if got := c.ValueOr(10, 42); got != 42 {
		t.Fatalf("ValueOr on an empty curve: got %v, want 42", got)
	}
	c.Set(0, 0, 0, 0)
	c.Set(100, 20, 0, 0)
	cases := []struct{ tick, want int }{{-5, 0}, {0, 0}, {25, 5}, {50, 10}, {99, 20}, {100, 20}, {1000, 20}}
	for _, cs := range cases {
		if got, ok := c.Query(cs.tick); !ok || got != cs.want {
			t.Errorf("Query(%d): got %v (ok %v), want %v", cs.tick, got, ok, cs.want)
		}
	}
}

func TestCurveCopyIsDeep(t *testing.T) {
	c := pitd()
	c.Set(10, 10, 10, 10)
	d := c.Copy()
	d.Set(10, 20, 10, 20)
	if v, _ := c.Query(10); v != 10 {
		t.Fatalf("copy shares storage with the original")
	}
	if d.Abbr != voxport.PITD || d.Min != -1200 || d.Max != 1200 {
		t.Fatalf("copy lost the expression: %+v", d)
	}
}
