package fn

import (
	"testing"

	"ion/internal/cell"
)

type fakeArgs struct{ vals []*cell.Cell }

func (a *fakeArgs) Arg(i int) *cell.Cell { return a.vals[i] }
func (a *fakeArgs) Count() int           { return len(a.vals) }

func TestNewPreservesParamsAndName(t *testing.T) {
	params := []Param{{Symbol: 1, Class: ClassHardQuote}, {Symbol: 2, Class: ClassNormal}}
	v := New("my-op", params, nil)
	if v.Name != "my-op" || len(v.Params) != 2 || v.Params[0].Class != ClassHardQuote {
		t.Fatalf("New did not preserve its arguments: %+v", v)
	}
}

func TestDispatcherInvocation(t *testing.T) {
	called := false
	d := func(args Args, out *cell.Cell) error {
		called = true
		a := args.Arg(0)
		out.SetInteger(a.Integer() + 1)
		return nil
	}
	v := New("inc", []Param{{Symbol: 1, Class: ClassNormal}}, d)

	in := cell.Cell{}
	in.SetInteger(41)
	args := &fakeArgs{vals: []*cell.Cell{&in}}
	var out cell.Cell
	if err := v.Dispatcher(args, &out); err != nil {
		t.Fatalf("Dispatcher: %v", err)
	}
	if !called || out.Integer() != 42 {
		t.Fatalf("out = %d called=%v, want 42,true", out.Integer(), called)
	}
}

func TestTableRegisterGet(t *testing.T) {
	tbl := NewTable()
	v := New("noop", nil, func(Args, *cell.Cell) error { return nil })
	id := tbl.Register(v)
	got, ok := tbl.Get(id)
	if !ok || got != v {
		t.Fatalf("Get(%d) = %v,%v want original value,true", id, got, ok)
	}
	if _, ok := tbl.Get(0); ok {
		t.Fatalf("Get(0) reported a hit; id 0 must never resolve")
	}
}
