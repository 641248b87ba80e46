package boot

import "testing"

func TestDefaultImageInstantiatesKnownTemplate(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)

	id, err := img.Instantiate(ev, "zero-divide", "test")
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	e, ok := ev.Errors.Get(id)
	if !ok {
		t.Fatalf("Errors.Get(%d) = not found", id)
	}
	if e.Code != "zero-divide" {
		t.Fatalf("Code = %q, want zero-divide", e.Code)
	}
	if e.Where != "test" {
		t.Fatalf("Where = %q, want test", e.Where)
	}
}

func TestInstantiateUnknownTemplateFails(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)
	if _, err := img.Instantiate(ev, "no-such-code", "test"); err == nil {
		t.Fatalf("Instantiate succeeded for an unknown code, want an error")
	}
}

func TestCanonWordsAreInternedUpFront(t *testing.T) {
	img := Default()
	ev := NewEvaluator(img)
	if _, ok := ev.Syms.Lookup("self"); !ok {
		t.Fatalf("canon word %q was not interned by NewEvaluator", "self")
	}
}
