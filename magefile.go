//go:build mage
// +build mage

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var (
	binDir  = "bin"
	appName = "senalmaq-payments"
)

var Default = Build

func Run() error {
	fmt.Println("Running (go run) on :8080 ...")
	return sh.RunV("go", "run", "./cmd/web")
}

func Build() error {
	mg.Deps(Tidy)

	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}

	env := map[string]string{"CGO_ENABLED": "0"}
	for _, target := range []struct{ name, pkg string }{
		{appName, "./cmd/web"},
		{"migrate", "./cmd/tools/migrate"},
		{"mockwebhook", "./cmd/tools/mockwebhook"},
	} {
		out := filepath.Join(binDir, target.name+exeSuffix())
		fmt.Println("Building:", out)
		if err := sh.RunWithV(env, "go", "build", "-trimpath", "-o", out, target.pkg); err != nil {
			return err
		}
	}
	return nil
}

// Test runs the suite. The gorm store tests use sqlite, which needs cgo.
func Test() error {
	fmt.Println("Testing...")
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...", "-count=1")
}

func TestRace() error {
	fmt.Println("Testing with -race...")
	if runtime.GOOS == "windows" {
		fmt.Println("Note: -race on Windows may be unsupported depending on your Go toolchain.")
	}
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...", "-race", "-count=1")
}

func Fmt() error {
	fmt.Println("Formatting...")
	return sh.RunV("gofmt", "-w", "./cmd", "./internal", "./magefile.go")
}

func Lint() error {
	fmt.Println("Linting (golangci-lint)...")
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		return fmt.Errorf("golangci-lint not found. Install with: mage Tools")
	}
	return sh.RunV("golangci-lint", "run", "--timeout=3m", "./...")
}

func Check() error {
	mg.Deps(Fmt, Lint, Test)
	fmt.Println("Check OK.")
	return nil
}

func Tidy() error {
	fmt.Println("Tidying go.mod/go.sum...")
	return sh.RunV("go", "mod", "tidy")
}

func Clean() error {
	fmt.Println("Cleaning...")
	return os.RemoveAll(binDir)
}

// Migrate applies the orders schema for the configured STORE_DRIVER.
func Migrate() error {
	return sh.RunV("go", "run", "./cmd/tools/migrate")
}

// MockBold posts a signed SALE_APPROVED webhook to a local server.
func MockBold() error {
	if os.Getenv("BOLD_WEBHOOK_SECRET") == "" {
		return errors.New("BOLD_WEBHOOK_SECRET is not set")
	}
	return sh.RunV("go", "run", "./cmd/tools/mockwebhook", "-provider", "bold")
}

// Tools installs golangci-lint.
func Tools() error {
	fmt.Println("Installing tools (golangci-lint)...")
	if err := sh.RunV("go", "install", "github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest"); err != nil {
		return err
	}
	if _, err := exec.LookPath("golangci-lint"); err != nil && !errors.Is(err, exec.ErrNotFound) {
		return err
	}
	fmt.Println("Tools installed. Ensure GOBIN/GOPATH/bin is in PATH.")
	return nil
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
