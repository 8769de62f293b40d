// Package lua hosts user scripts that customize how the lamp picks its color.
package lua

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/lumos/internal/lua/modules"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = errors.New("lua runtime closed")

// Runtime owns a Lua VM. The VM is not thread-safe, so every call goes through
// the runtime's lock.
type Runtime struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

// NewRuntime creates a VM with the standard library and the log module preloaded.
func NewRuntime() *Runtime {
	L := lua.NewState()
	L.PreloadModule("log", modules.NewLogModule().Loader)
	return &Runtime{L: L}
}

// LoadFile executes a script file, defining its globals.
func (r *Runtime) LoadFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRuntimeClosed
	}
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to load script %s: %w", path, err)
	}
	log.Info().Str("script", path).Msg("Lua script loaded")
	return nil
}

// LoadString executes script source, defining its globals.
func (r *Runtime) LoadString(source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRuntimeClosed
	}
	return r.L.DoString(source)
}

// HasFunction reports whether a global function with the given name exists.
func (r *Runtime) HasFunction(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	_, ok := r.L.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Call invokes a global function with table arguments and returns its single
// table result converted to a Go map.
func (r *Runtime) Call(name string, args ...map[string]any) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRuntimeClosed
	}

	fn, ok := r.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("lua function %q not defined", name)
	}

	luaArgs := make([]lua.LValue, 0, len(args))
	for _, a := range args {
		luaArgs = append(luaArgs, modules.MapToLuaTable(r.L, a))
	}

	if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, luaArgs...); err != nil {
		return nil, fmt.Errorf("lua %s failed: %w", name, err)
	}

	result := r.L.Get(-1)
	r.L.Pop(1)

	tbl, ok := result.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua %s returned %s, want table", name, result.Type())
	}
	return modules.LuaTableToMap(tbl), nil
}

// Close releases the VM.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.L.Close()
}
