package web

import (
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/dop251/goja"
)

// memoryStorage is a localStorage stand-in for the script runtime.
const memoryStorage = `
var store = {};
var storage = {
  getItem: function (k) { return Object.prototype.hasOwnProperty.call(store, k) ? store[k] : null; },
  setItem: function (k, v) { store[k] = String(v); },
  removeItem: function (k) { delete store[k]; },
};
`

// newRuntime returns a JS runtime with memoryStorage and the named bundle scripts loaded in order.
func newRuntime(t *testing.T, scripts ...string) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	if _, err := vm.RunString(memoryStorage); err != nil {
		t.Fatalf("storage setup: %v", err)
	}
	for _, name := range scripts {
		src, err := fs.ReadFile(FS(), name)
		if err != nil {
			t.Fatalf("ReadFile(%q): %v", name, err)
		}
		if _, err := vm.RunScript(name, string(src)); err != nil {
			t.Fatalf("run %s: %v", name, err)
		}
	}
	return vm
}

func evalString(t *testing.T, vm *goja.Runtime, expr string) string {
	t.Helper()
	v, err := vm.RunString(expr)
	if err != nil {
		t.Fatalf("eval %q: %v", expr, err)
	}
	return v.String()
}

func TestFS_ContainsBundle(t *testing.T) {
	for _, name := range []string{"index.html", "dashboard.html", "call.html", "callcore.js", "app.js", "style.css"} {
		data, err := fs.ReadFile(FS(), name)
		if err != nil {
			t.Errorf("ReadFile(%q): %v", name, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%q is empty", name)
		}
	}
}

func TestFS_PagesLoadApp(t *testing.T) {
	for _, name := range []string{"index.html", "dashboard.html", "call.html"} {
		data, err := fs.ReadFile(FS(), name)
		if err != nil {
			t.Fatalf("ReadFile(%q): %v", name, err)
		}
		page := string(data)
		core := strings.Index(page, `src="/callcore.js"`)
		app := strings.Index(page, `src="/app.js"`)
		if core < 0 || app < 0 {
			t.Errorf("%q should load /callcore.js and /app.js", name)
			continue
		}
		if core > app {
			t.Errorf("%q loads /app.js before /callcore.js", name)
		}
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	vm := newRuntime(t, "callcore.js")
	_, err := vm.RunString(`
var tick = 0;
var history = CallCore.createHistory(storage, function () { return new Date(Date.UTC(2025, 0, 1, 0, 0, tick++)); });
['+15550000001', '+15550000002', '+15550000003', '+15550000004'].forEach(function (n) { history.add(n); });
`)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got := evalString(t, vm, `history.load().map(function (e) { return e.target; }).join(',')`)
	if want := "+15550000004,+15550000003,+15550000002,+15550000001"; got != want {
		t.Errorf("targets = %s, want %s", got, want)
	}
	if got := evalString(t, vm, `history.load()[0].time`); got != "2025-01-01T00:00:03.000Z" {
		t.Errorf("newest time = %s", got)
	}
	if got := evalString(t, vm, `Object.keys(store).join(',')`); got != "call_history" {
		t.Errorf("storage keys = %s, want call_history only", got)
	}

	// A second history over the same storage sees the same list.
	if got := evalString(t, vm, `CallCore.createHistory(storage).load().length`); got != "4" {
		t.Errorf("reloaded length = %s, want 4", got)
	}
}

func TestHistory_CorruptStorage(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"not json", `'{oops'`},
		{"not a list", `'{"target":"+1555"}'`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vm := newRuntime(t, "callcore.js")
			evalString(t, vm, `storage.setItem(CallCore.HISTORY_KEY, `+tc.value+`)`)
			if got := evalString(t, vm, `CallCore.createHistory(storage).load().length`); got != "0" {
				t.Errorf("load length = %s, want 0", got)
			}
			if got := evalString(t, vm, `CallCore.createHistory(storage).add('+1555').length`); got != "1" {
				t.Errorf("length after add = %s, want 1", got)
			}
		})
	}
}

func TestCallMachine(t *testing.T) {
	testCases := []struct {
		name     string
		events   string
		want     string
		accepted string
	}{
		{"ring answer hang", `['ring','answer','hang']`, "ended", "true,true,true"},
		{"answer without ringing", `['answer']`, "connected", "true"},
		{"hang from idle", `['hang']`, "ended", "true"},
		{"ended is terminal", `['hang','ring','answer']`, "ended", "true,false,false"},
		{"no ring after connect", `['answer','ring']`, "connected", "true,false"},
		{"unknown event", `['teleport']`, "idle", "false"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vm := newRuntime(t, "callcore.js")
			_, err := vm.RunString(`
var changes = [];
var m = CallCore.createCallMachine(function (next, prev) { changes.push(prev + '>' + next); });
var accepted = ` + tc.events + `.map(function (e) { return m.send(e); });
`)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if got := evalString(t, vm, `m.state`); got != tc.want {
				t.Errorf("state = %s, want %s", got, tc.want)
			}
			if got := evalString(t, vm, `accepted.join(',')`); got != tc.accepted {
				t.Errorf("accepted = %s, want %s", got, tc.accepted)
			}
			want := strconv.Itoa(strings.Count(tc.accepted, "true"))
			if got := evalString(t, vm, `String(changes.length)`); got != want {
				t.Errorf("onChange calls = %s, want %s", got, want)
			}
		})
	}
}

func TestApp_LoadsOnPageWithoutWidgets(t *testing.T) {
	vm := goja.New()
	if _, err := vm.RunString(memoryStorage + `
var window = this;
var localStorage = storage;
var document = { getElementById: function () { return null; } };
`); err != nil {
		t.Fatalf("setup: %v", err)
	}
	for _, name := range []string{"callcore.js", "app.js"} {
		src, err := fs.ReadFile(FS(), name)
		if err != nil {
			t.Fatalf("ReadFile(%q): %v", name, err)
		}
		if _, err := vm.RunScript(name, string(src)); err != nil {
			t.Fatalf("run %s: %v", name, err)
		}
	}
	if got := evalString(t, vm, `typeof CallCore.createHistory`); got != "function" {
		t.Errorf("CallCore.createHistory is %s", got)
	}
}
