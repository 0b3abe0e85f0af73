package cmd

import (
	"io/ioutil"
	"log"
)

func init() {
	// Some transitive dependencies reach for the standard library's global
	// logger; silence it so nothing outside this package's own prefixed
	// output ever reaches standard error.
	log.SetOutput(ioutil.Discard)
}
