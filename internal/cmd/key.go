package cmd

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/ffpad/ffpad/ds4"
)

// Key validates a controller key bundle and prints its identity.
type Key struct {
	File string `arg:"" help:"Key bundle path (0x590 bytes)"`
}

// Run is called by kong when the key command is executed.
func (k *Key) Run(logger *slog.Logger) error {
	f, err := os.Open(k.File)
	if err != nil {
		return err
	}
	defer f.Close()

	key, err := ds4.LoadKey(f)
	if err != nil {
		return fmt.Errorf("key bundle is not usable: %w", err)
	}

	fmt.Printf("serial:      %s\n", hex.EncodeToString(key.Serial()))
	fmt.Printf("fingerprint: %s\n", key.Fingerprint())
	fmt.Printf("modulus:     %d bits\n", key.Public().N.BitLen())
	fmt.Println("key bundle OK")
	return nil
}
