// bio-logqc validates the console logs of a read alignment and variant
// calling pipeline, collects its stage run times and scores GATK progress
// meters against reference distributions. See "bio-logqc help".
package main

import (
	"os"

	"github.com/JuanMataNaranjo/CINECA-repo/cmd/bio-logqc/cmd"
	"github.com/grailbio/base/grail"
)

func main() {
	shutdown := grail.Init()
	code := cmd.Run()
	shutdown()
	os.Exit(code)
}
