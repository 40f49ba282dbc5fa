// Package app wires the extraction stack from configuration.
package app

import (
	"log/slog"

	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/contract"
	"github.com/joseph-ayodele/doctext/internal/core/extract"
	"github.com/joseph-ayodele/doctext/internal/core/imaging"
	"github.com/joseph-ayodele/doctext/internal/core/ocr"
	"github.com/joseph-ayodele/doctext/internal/core/pdfdoc"
	"github.com/joseph-ayodele/doctext/internal/core/runner"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
	"github.com/joseph-ayodele/doctext/internal/repository"
)

const mb = 1 << 20

// Stack is everything a binary needs to extract files.
type Stack struct {
	Dispatcher *extract.Dispatcher
	Validator  *contract.Validator
	Pipeline   *pipeline.Pipeline
	Processor  *pipeline.Processor
}

// ExtractConfig maps the environment configuration onto strategy limits.
func ExtractConfig(cfg *common.Config) extract.Config {
	e := cfg.Extraction
	return extract.Config{
		MaxFileSize:          int64(e.MaxFileSizeMB) * mb,
		MaxImageSize:         int64(e.MaxImageSizeMB) * mb,
		PageBatchSize:        e.PageBatchSize,
		ScannedCharThreshold: e.ScannedCharThreshold,
		MaxOCRDocumentPages:  e.MaxOCRDocumentPages,
		MaxOCRPages:          e.MaxOCRPages,
		OCRDPI:               cfg.OCR.DPI,
		PreviewDPI:           cfg.OCR.PreviewDPI,
		Image: imaging.Options{
			MaxDimension: e.ImageMaxDimension,
			Threshold:    uint8(e.BinarizeThreshold),
		},
	}.WithDefaults()
}

func OCRConfig(cfg *common.Config) ocr.Config {
	return ocr.Config{
		Backend:     cfg.OCR.Engine,
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
	}
}

// Build wires dispatcher, contract and pipeline. repo may be nil when nothing is recorded.
func Build(cfg *common.Config, repo repository.ExtractionRepository, logger *slog.Logger, consumers ...pipeline.Consumer) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	factory, err := ocr.NewFactory(OCRConfig(cfg), logger)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "invalid OCR configuration", err)
	}
	pdfCfg := pdfdoc.Config{
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Pdftotext: cfg.OCR.Pdftotext,
		Pdfinfo:   cfg.OCR.Pdfinfo,
		Runner:    runner.Exec{},
		Logger:    logger,
	}
	dispatcher := extract.NewDefault(ExtractConfig(cfg), factory, pdfCfg, logger)

	minLen := cfg.Extraction.MinTextLength
	if minLen <= 0 {
		minLen = pipeline.DefaultMinTextLength
	}
	validator, err := contract.NewValidator(minLen)
	if err != nil {
		return nil, common.WrapError(err, "build result contract")
	}

	p := pipeline.New(dispatcher, validator, repo, logger, consumers...)
	p.MinTextLength = minLen

	return &Stack{
		Dispatcher: dispatcher,
		Validator:  validator,
		Pipeline:   p,
		Processor:  pipeline.NewProcessor(logger, p),
	}, nil
}
