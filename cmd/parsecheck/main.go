// Command parsecheck runs translated announcement text through the real
// structuring logic and prints the resulting record as JSON. It is a
// development aid for checking how status inference and date extraction
// behave on a concrete announcement without standing up the service.
//
// Usage:
//
//	go run ./cmd/parsecheck -utility water -in announcement.txt
//	echo "On 24.06.2025 10:00-18:00 planned works" | go run ./cmd/parsecheck
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	utility := flag.String("utility", "water", "utility the announcement belongs to (water, gas, electric)")
	hint := flag.String("hint", "unknown", "status hint from the page section (planned, emergency, unknown)")
	in := flag.String("in", "", "file with translated announcement text (default stdin)")
	flag.Parse()

	u := domain.Utility(*utility)
	switch u {
	case domain.UtilityWater, domain.UtilityGas, domain.UtilityElectric:
	default:
		return fmt.Errorf("unknown utility %q", *utility)
	}

	text, err := readInput(*in)
	if err != nil {
		return err
	}
	if len(text) == 0 {
		return fmt.Errorf("no announcement text provided")
	}

	ann := domain.RawAnnouncement{
		Utility: u,
		Text:    string(text),
		Hint:    domain.Status(*hint),
	}
	// No entities here: parsecheck exercises status and timing only.
	// Location extraction needs the NER backend.
	rec := domain.StructureAnnouncement(ann, string(text), nil)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
