// Package linker drives the system C toolchain: it turns the compiler's
// textual LLVM module into an object file, assembly listing or linked
// executable, and supplies the small C runtime the emitted code calls
// into.
package linker

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/codeassociates/caiman/diag"
)

// Driver wraps one discovered toolchain binary.
type Driver struct {
	CC      string
	Verbose bool
	// NoLLVMChecks disables the LLVM verifier on the generated module.
	NoLLVMChecks bool
}

// Find locates a usable C compiler. The .ll input requires clang; plain
// gcc cannot consume LLVM IR.
func Find() (*Driver, *diag.Error) {
	if runtime.GOOS == "windows" {
		return nil, diag.FromKind("no supported linker on this platform", diag.Linker)
	}
	for _, candidate := range []string{"clang", "cc"} {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		// cc is only acceptable when it is clang in disguise
		if candidate == "cc" && !isClang(path) {
			continue
		}
		return &Driver{CC: path}, nil
	}
	return nil, diag.FromKind("cannot find a linker: clang is required", diag.Linker).
		WithHint("install clang and make sure it is in your PATH")
}

func isClang(path string) bool {
	out, err := exec.Command(path, "--version").CombinedOutput()
	return err == nil && strings.Contains(strings.ToLower(string(out)), "clang")
}

// writeRuntime drops the C runtime stub next to the other temporaries.
func (d *Driver) writeRuntime(dir string) (string, *diag.Error) {
	path := filepath.Join(dir, "caiman_runtime_"+uuid.NewString()+".c")
	if err := os.WriteFile(path, []byte(runtimeStub), 0o644); err != nil {
		return "", diag.FromKind("cannot write the runtime stub", diag.Io)
	}
	return path, nil
}

func (d *Driver) run(args ...string) *diag.Error {
	cmd := exec.Command(d.CC, args...)
	out, err := cmd.CombinedOutput()
	if d.Verbose {
		os.Stdout.WriteString(d.CC + " " + strings.Join(args, " ") + "\n")
	}
	if err != nil {
		msg := "the linker failed"
		if len(out) > 0 {
			msg = msg + ":\n" + string(out)
		}
		return diag.FromKind(msg, diag.Linker)
	}
	return nil
}

func (d *Driver) commonArgs(optLevel int) []string {
	args := []string{"-O" + strconv.Itoa(optLevel), "-Wno-override-module"}
	if d.NoLLVMChecks {
		args = append(args, "-Xclang", "-disable-llvm-verifier")
	}
	return args
}

// EmitAsm produces an assembly listing from the IR file.
func (d *Driver) EmitAsm(llPath, outPath string, optLevel int) *diag.Error {
	args := append(d.commonArgs(optLevel), "-S", llPath, "-o", outPath)
	return d.run(args...)
}

// EmitObject assembles the IR file into an object file.
func (d *Driver) EmitObject(llPath, outPath string, optLevel int) *diag.Error {
	args := append(d.commonArgs(optLevel), "-c", llPath, "-o", outPath)
	return d.run(args...)
}

// Link builds the final executable: the IR file plus the embedded
// runtime, compiled and linked in one toolchain invocation. Temporaries
// are removed afterwards.
func (d *Driver) Link(llPath, outPath string, optLevel int) *diag.Error {
	dir := filepath.Dir(llPath)
	runtimePath, err := d.writeRuntime(dir)
	if err != nil {
		return err
	}
	defer os.Remove(runtimePath)

	args := append(d.commonArgs(optLevel), llPath, runtimePath, "-lm", "-o", outPath)
	return d.run(args...)
}

// ExecutableName derives the executable path from a source stem.
func ExecutableName(stem string) string {
	if runtime.GOOS == "windows" {
		return stem + ".exe"
	}
	return stem
}
