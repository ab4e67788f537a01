package cmd

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/psds-microservice/checkin-scanner/internal/decoder"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <image>",
	Short: "Decode the QR code in a JPEG or PNG image",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	payload, ok := decoder.New(true).DecodeImage(img)
	if !ok {
		return errors.New("no QR code found")
	}
	fmt.Fprintln(cmd.OutOrStdout(), payload)
	return nil
}
