package command

import (
	"fluxfill/internal/core/domain"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ParseInpaintArgs reads the text after /inpaint. Words of the form key=value set parameters, everything else
// is joined into the prompt. Underscores in outpaint values stand for spaces, so "outpaint=zoom_out_2x" works.
func ParseInpaintArgs(args string) (domain.Params, error) {
	params := domain.DefaultParams()

	var prompt []string
	for _, word := range strings.Fields(args) {
		key, value, ok := strings.Cut(word, "=")
		if !ok || !isParamKey(key) {
			prompt = append(prompt, word)
			continue
		}

		if err := setParam(&params, strings.ToLower(key), value); err != nil {
			return params, err
		}
	}

	params.Prompt = strings.Join(prompt, " ")

	return params, nil
}

var paramKeys = []string{"image", "mask", "steps", "guidance", "outpaint", "format", "safety", "upsample"}

func isParamKey(key string) bool {
	return slices.Contains(paramKeys, strings.ToLower(key))
}

func setParam(params *domain.Params, key, value string) error {
	var err error

	switch key {
	case "image":
		params.Image = domain.ImageRef(value)
	case "mask":
		params.Mask = domain.ImageRef(value)
	case "steps":
		params.Steps, err = strconv.Atoi(value)
	case "guidance":
		params.Guidance, err = strconv.ParseFloat(value, 64)
	case "outpaint":
		params.Outpaint, err = domain.ParseOutpaint(strings.ReplaceAll(value, "_", " "))
	case "format":
		params.OutputFormat, err = domain.ParseOutputFormat(value)
	case "safety":
		params.SafetyTolerance, err = strconv.Atoi(value)
	case "upsample":
		params.PromptUpsampling, err = strconv.ParseBool(value)
	}

	if err != nil {
		return fmt.Errorf("%w: %s=%s", domain.ErrInvalidParameter, key, value)
	}

	return nil
}
