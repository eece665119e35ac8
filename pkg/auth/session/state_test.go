package session

import "testing"

func TestTakeRedirectConsumesOnce(t *testing.T) {
	state := &State{}
	state.RememberRedirect("/certificate")

	if got := state.TakeRedirect("/home"); got != "/certificate" {
		t.Fatalf("expected stored redirect, got %q", got)
	}
	if got := state.TakeRedirect("/home"); got != "/home" {
		t.Fatalf("expected fallback after consumption, got %q", got)
	}
}

func TestRememberRedirectIgnoresOffsiteTargets(t *testing.T) {
	state := &State{}
	for _, target := range []string{"https://evil.example", "//evil.example", "/\\evil", "relative"} {
		state.RememberRedirect(target)
	}
	if state.RedirectTo != "" {
		t.Fatalf("expected no redirect stored, got %q", state.RedirectTo)
	}
	if state.Dirty() {
		t.Fatal("rejected redirects must not dirty the state")
	}
}

func TestTakeFlashesClearsQueue(t *testing.T) {
	state := &State{}
	state.Flash(FlashError, "Please Login to continue")
	state.Flash(FlashSuccess, "  ")

	flashes := state.TakeFlashes()
	if len(flashes) != 1 || flashes[0].Kind != FlashError {
		t.Fatalf("unexpected flashes %+v", flashes)
	}
	if state.TakeFlashes() != nil {
		t.Fatal("expected queue to be empty after take")
	}
}

func TestSignOutKeepsFlashes(t *testing.T) {
	state := &State{UserID: "u1", RedirectTo: "/profile"}
	state.SignOut()
	state.Flash(FlashSuccess, "Thank you for visiting us. Have a nice day!")

	if state.UserID != "" || state.RedirectTo != "" {
		t.Fatalf("expected principal and redirect cleared, got %+v", state)
	}
	if len(state.Flashes) != 1 {
		t.Fatalf("expected farewell flash to survive sign out")
	}
}
