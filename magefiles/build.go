//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL stage in assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the lumen binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/lumen", "."), withStream())
	return err
}

func buildShaders() error {
	sources, err := filepath.Glob(filepath.Join(shaderDir, "*.vert"))
	if err != nil {
		return err
	}
	frags, err := filepath.Glob(filepath.Join(shaderDir, "*.frag"))
	if err != nil {
		return err
	}
	sources = append(sources, frags...)
	if len(sources) == 0 {
		return fmt.Errorf("no shader sources in %s", shaderDir)
	}

	for _, src := range sources {
		out := src + ".spv"
		if upToDate(src, out) {
			continue
		}
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.2", src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// upToDate reports whether out exists and is newer than src.
func upToDate(src, out string) bool {
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	oi, err := os.Stat(out)
	if err != nil {
		return false
	}
	return oi.ModTime().After(si.ModTime())
}
