package extract

import (
	"chess-loader/internal/domain"
	"chess-loader/internal/retrier"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// The source sends some booleans as strings and numbers as JSON floats, so
// decoding is weakly typed.
func decode(input map[string]any, out any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(objectToType),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return d.Decode(input)
}

// objectToType collapses an object into its "type" field where a string is
// expected, e.g. {"type": "twitch", "channel_url": ...} in streaming_platforms.
func objectToType(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Map || to.Kind() != reflect.String {
		return data, nil
	}
	if m, ok := data.(map[string]any); ok {
		if t, ok := m["type"].(string); ok {
			return t, nil
		}
	}
	return data, nil
}

func decodeProfile(payload map[string]any) (domain.PlayerProfile, error) {
	var p domain.PlayerProfile
	if err := decode(payload, &p); err != nil {
		return domain.PlayerProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	if p.PlayerID <= 0 {
		return domain.PlayerProfile{}, fmt.Errorf("decode profile: player_id %d is not positive", p.PlayerID)
	}
	return p, nil
}

func decodeGame(raw map[string]any, player string) (domain.GameRecord, error) {
	var g domain.GameRecord
	if err := decode(raw, &g); err != nil {
		return domain.GameRecord{}, fmt.Errorf("decode game: %w", err)
	}
	if g.URL == "" {
		return domain.GameRecord{}, errors.New("decode game: missing url")
	}
	g.Player = player
	return g, nil
}

// decodeFault marks a payload the source returned but we could not use.
// Fetching it again would not help.
func decodeFault(err error) error {
	return retrier.NewFault(retrier.NonRetryable, 0, err)
}
