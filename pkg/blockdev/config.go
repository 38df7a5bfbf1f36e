package blockdev

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ssargent/crcbd/pkg/codec"
	"github.com/ssargent/crcbd/pkg/ecc"
)

// Geometry is the caller's view of the device, in payload bytes.
type Geometry struct {
	ReadSize   uint32 `json:"read_size" validate:"gt=0"`
	ProgSize   uint32 `json:"prog_size" validate:"gt=0"`
	BlockSize  uint32 `json:"block_size" validate:"gt=0"`
	BlockCount uint32 `json:"block_count" validate:"gt=0"`
}

// ECCConfig describes the physical layout and error correction of the device.
type ECCConfig struct {
	// CodeSize is the size of a codeword in bytes. A crc32 is 4 bytes, so each
	// codeword carries CodeSize-4 bytes of payload.
	CodeSize uint32 `json:"code_size" validate:"gt=4"`

	// EraseSize is the size of an erase unit in bytes. Must be a multiple of
	// CodeSize.
	EraseSize uint32 `json:"erase_size" validate:"gt=0"`

	// EraseCount is the number of erase units on the device.
	EraseCount uint32 `json:"erase_count" validate:"gt=0"`

	// CorrectionStrength is the number of bit errors to try to correct. Every
	// bit corrected is two fewer bits that can be reliably detected. Zero tries
	// as many as the read size safely allows; -1 disables correction.
	CorrectionStrength int `json:"correction_strength" validate:"gte=-1"`

	// Buffer optionally supplies the backing memory. The device borrows it and
	// never releases it. It must hold at least EraseSize*EraseCount bytes.
	Buffer []byte `json:"-" validate:"-"`
}

// PayloadSize returns the number of data bytes per codeword.
func (c ECCConfig) PayloadSize() uint32 {
	return c.CodeSize - codec.ChecksumSize
}

// UsableEraseSize returns the payload bytes that fit in one erase unit.
func (c ECCConfig) UsableEraseSize() uint32 {
	return c.EraseSize - (c.EraseSize/c.CodeSize)*codec.ChecksumSize
}

// Size returns the size of the backend in bytes.
func (c ECCConfig) Size() uint64 {
	return uint64(c.EraseSize) * uint64(c.EraseCount)
}

var validate = validator.New()

// Validate checks geometry and correction settings against each other. It
// returns a *ConfigError describing the first violation.
func Validate(geom Geometry, cfg ECCConfig) error {
	if err := validateFields(geom); err != nil {
		return err
	}
	if err := validateFields(cfg); err != nil {
		return err
	}

	ps := cfg.PayloadSize()
	if cfg.EraseSize%cfg.CodeSize != 0 {
		return &ConfigError{"EraseSize", fmt.Sprintf("%d is not a multiple of code size %d", cfg.EraseSize, cfg.CodeSize)}
	}
	if geom.ReadSize%ps != 0 {
		return &ConfigError{"ReadSize", fmt.Sprintf("%d is not a multiple of payload size %d", geom.ReadSize, ps)}
	}
	if geom.ProgSize%ps != 0 {
		return &ConfigError{"ProgSize", fmt.Sprintf("%d is not a multiple of payload size %d", geom.ProgSize, ps)}
	}
	usable := cfg.UsableEraseSize()
	if geom.BlockSize%usable != 0 {
		return &ConfigError{"BlockSize", fmt.Sprintf("%d is not a multiple of usable erase size %d", geom.BlockSize, usable)}
	}
	if need, have := uint64(geom.BlockSize)*uint64(geom.BlockCount), uint64(usable)*uint64(cfg.EraseCount); need > have {
		return &ConfigError{"BlockCount", fmt.Sprintf("%d blocks need %d payload bytes, device holds %d", geom.BlockCount, need, have)}
	}

	for n := 1; n <= ecc.MaxBits; n++ {
		if cfg.CorrectionStrength >= n && uint64(geom.ReadSize) > ecc.SafeLimit(n) {
			return &ConfigError{"CorrectionStrength", fmt.Sprintf(
				"%d-bit correction needs read size <= %d, have %d", n, ecc.SafeLimit(n), geom.ReadSize)}
		}
	}

	if cfg.Buffer != nil && uint64(len(cfg.Buffer)) < cfg.Size() {
		return &ConfigError{"Buffer", fmt.Sprintf("%d bytes, device needs %d", len(cfg.Buffer), cfg.Size())}
	}
	return nil
}

func validateFields(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigError{fe.Field(), fmt.Sprintf("%v fails %s=%s", fe.Value(), fe.Tag(), fe.Param())}
	}
	return &ConfigError{"config", err.Error()}
}
