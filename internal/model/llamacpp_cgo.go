//go:build llama

package model

// Link against libllama placed next to the binary (./bin), found at runtime via $ORIGIN.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
