package converter

import (
	"context"
	"errors"
	"fluxfill/internal/adapters/file"
	"fluxfill/internal/core/domain"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// Magick normalizes masks by shelling out to ImageMagick.
type Magick struct {
	magickBinary []string
}

// NewMagick looks for an ImageMagick 7 or 6 binary and fails when neither is installed.
func NewMagick() (*Magick, error) {
	m := &Magick{}
	commands := [][]string{{"magick", "-version"}, {"convert", "-version"}}

	for _, command := range commands {
		_, err := exec.Command(command[0], command[1:]...).Output()
		if err != nil {
			log.Debug().Strs("command", command).Msg("binary not found")
			continue
		}

		log.Debug().Strs("command", command).Msg("binary found")
		m.magickBinary = command[:len(command)-1]
		break
	}

	if len(m.magickBinary) == 0 {
		return nil, fmt.Errorf("%w: magick binary not available", domain.ErrCapabilityUnavailable)
	}

	return m, nil
}

func (m *Magick) Dimensions(data []byte) (domain.Dimensions, error) {
	return decodeDimensions(data)
}

func (m *Magick) Normalize(ctx context.Context, data []byte, target domain.Dimensions) ([]byte, error) {
	if err := checkSizes(data, target); err != nil {
		return nil, err
	}

	in, err := file.SaveTempFile(data, "")
	if err != nil {
		return nil, err
	}
	defer file.RemoveTempFile(in)

	out, err := file.TempPath(".png")
	if err != nil {
		return nil, err
	}

	args := append([]string{}, m.magickBinary...)
	args = append(args, in,
		"-filter", "Lanczos",
		"-resize", fmt.Sprintf("%dx%d!", target.Width, target.Height),
		"-background", "white",
		"-alpha", "remove",
		"-alpha", "off",
		"-type", "TrueColor",
		"PNG24:"+out)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stderr, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Bytes("magickStderr", stderr).Msg("magick command failed")
		return nil, errors.Join(errors.New("magick resize failed"), err)
	}
	defer file.RemoveTempFile(out)

	log.Debug().Stringer("target", target).Msg("magick command finished")

	return file.GetTempFile(out)
}
