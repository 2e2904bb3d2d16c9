package main

import (
	"fmt"
	"io"
	"os"

	"protospace/internal/api"
	"protospace/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{Indent: "  "}

var stdout io.Writer = os.Stdout

func writeJSON(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writePrototypeList(prototypes []api.Prototype) error {
	if len(prototypes) == 0 {
		return writePlain("no prototypes\n")
	}
	for _, p := range prototypes {
		if err := writePlain("%s\n", format.PrototypeLine(p)); err != nil {
			return err
		}
	}
	return nil
}

func writePrototypeDetail(detail api.PrototypeDetail) error {
	return writePlain("%s\n", format.PrototypeDetail(detail))
}
