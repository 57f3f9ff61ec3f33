// Command matlayout prints and checks the GPU layout of material definition files.
//
// Usage:
//
//	matlayout layout lit.toml     # uniform offsets and sampler bindings
//	matlayout wgsl lit.toml       # WGSL declarations matching the layout
//	matlayout check *.toml        # expand and validate the shaders of each definition
//	matlayout profile lit.toml    # simulated commit traffic of many instances
package main

import "os"

func main() {
	os.Exit(run())
}
