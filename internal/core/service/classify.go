package service

import (
	"errors"
	"fluxfill/internal/core/domain"
	"strings"
)

type classifier struct {
	category domain.ProviderCategory
	match    func(msg string) bool
	hint     string
}

func containsAny(keywords ...string) func(string) bool {
	return func(msg string) bool {
		for _, k := range keywords {
			if strings.Contains(msg, k) {
				return true
			}
		}
		return false
	}
}

// classifiers are evaluated in order, the first match wins.
var classifiers = []classifier{
	{
		category: domain.CategoryMask,
		match:    containsAny("mask size", "does not match"),
		hint: "The mask could not be matched to the source image size.\n" +
			"Please try:\n" +
			"1. Resizing the mask to the exact source dimensions\n" +
			"2. Checking that both URLs are publicly accessible\n" +
			"3. Using standard formats (PNG/JPG) for both images",
	},
	{
		category: domain.CategoryMask,
		match:    containsAny("mask"),
		hint: "Checklist:\n" +
			"- Is the mask URL publicly accessible?\n" +
			"- Is the mask a valid PNG/JPG?\n" +
			"- White marks the area to edit, black is preserved\n" +
			"For outpainting, set the outpaint mode and leave the mask empty.",
	},
	{
		category: domain.CategoryEncoding,
		match:    containsAny("base64", "data:"),
		hint: "The resized mask could not be encoded.\n" +
			"Please try:\n" +
			"1. Providing a mask that already matches the source size\n" +
			"2. Using a plain black and white mask without transparency\n" +
			"3. Converting the mask to PNG before uploading",
	},
	{
		category: domain.CategoryImage,
		match: func(msg string) bool {
			return strings.Contains(msg, "image") && containsAny("not", "invalid")(msg)
		},
		hint: "Checklist:\n" +
			"- Is the image URL publicly accessible?\n" +
			"- Does the URL point directly to an image file?\n" +
			"- Is the format supported (JPG/PNG/WebP)?\n" +
			"- Is the file smaller than 20MB?",
	},
	{
		category: domain.CategoryAuthentication,
		match:    containsAny("unauthorized", "authentication"),
		hint: "Check that your Replicate API token is valid and billing is enabled.\n" +
			"Tokens can be created at https://replicate.com/account/api-tokens",
	},
	{
		category: domain.CategoryRateLimit,
		match:    containsAny("rate limit", "quota"),
		hint: "The Replicate rate limit was reached. Wait a few minutes and try again,\n" +
			"or check your usage at https://replicate.com/account/billing",
	},
}

const genericHint = "Common issues to check:\n" +
	"1. All URLs are publicly accessible\n" +
	"2. Images are in supported formats (JPG/PNG/WebP)\n" +
	"3. The Replicate API token is valid and has billing enabled\n" +
	"4. Try with simpler images first"

// ClassifyProviderError maps an error returned by the remote model to a ProviderError category by keyword.
func ClassifyProviderError(err error) *domain.ProviderError {
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) && providerErr.Hint != "" {
		return providerErr
	}

	msg := err.Error()
	if providerErr != nil {
		msg = providerErr.Message
	}

	lower := strings.ToLower(msg)
	for _, c := range classifiers {
		if c.match(lower) {
			return &domain.ProviderError{Category: c.category, Message: msg, Hint: c.hint, Err: err}
		}
	}

	return &domain.ProviderError{Category: domain.CategoryGeneric, Message: msg, Hint: genericHint, Err: err}
}

var categoryTitles = map[domain.ProviderCategory]string{
	domain.CategoryMask:           "Mask Error",
	domain.CategoryEncoding:       "Image Encoding Error",
	domain.CategoryImage:          "Image Error",
	domain.CategoryAuthentication: "Authentication Error",
	domain.CategoryRateLimit:      "Rate Limit Error",
	domain.CategoryGeneric:        "Error",
}

func describeProviderError(e *domain.ProviderError) string {
	return categoryTitles[e.Category] + ": " + e.Message + "\n\n" + e.Hint
}
