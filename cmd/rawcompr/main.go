package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fdurso/rawcompr-go/avio"
	"github.com/fdurso/rawcompr-go/internal/rclog"
	"github.com/fdurso/rawcompr-go/rcerrors"
	"github.com/fdurso/rawcompr-go/transcode"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "rawcompr",
		Usage: "losslessly transcode raw-video Matroska streams and reconstruct them byte-for-byte",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			rclog.SetDebug(c.Bool("debug"))
			return nil
		},
		Commands: []*cli.Command{
			compressCommand(),
			decompressCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(exitCodeFor(rclog.Fatal(err)))
	}
}

func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var rcErr rcerrors.Error
	if ok := asRcError(err, &rcErr); ok {
		return int(rcErr.Kind()) + 1
	}
	return 1
}

func asRcError(err error, target *rcerrors.Error) bool {
	if rcErr, ok := err.(rcerrors.Error); ok {
		*target = rcErr
		return true
	}
	return false
}

func compressCommand() *cli.Command {
	return &cli.Command{
		Name:      "compress",
		Usage:     "replace raw-video streams with a lossless codec and write a sidecar .llr file",
		ArgsUsage: "INPUT.mkv OUTPUT.mkv",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "video-codec", Value: "ffv1", Usage: "ffv1 or huffyuv"},
			&cli.StringSliceFlag{Name: "video-opt", Usage: "encoder option as key=value, may be repeated"},
			&cli.StringFlag{Name: "hash", Value: "MD5", Usage: "hash algorithm for the sidecar file"},
			&cli.StringFlag{Name: "dump-table", Usage: "write the reference table to PATH as CSV"},
		},
		Action: runCompress,
	}
}

func decompressCommand() *cli.Command {
	return &cli.Command{
		Name:      "decompress",
		Usage:     "reconstruct the original container from a compressed .mkv and its .llr sidecar",
		ArgsUsage: "INPUT.mkv OUTPUT",
		Action:    runDecompress,
	}
}

func runCompress(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return rcerrors.ErrInvalidArgument.WithMessage("compress requires INPUT.mkv and OUTPUT.mkv")
	}
	inputPath := c.Args().Get(0)
	outputPath := c.Args().Get(1)

	if !strings.HasSuffix(outputPath, ".mkv") {
		return rcerrors.ErrExtensionMismatch.WithMessage(outputPath + " must end in .mkv")
	}
	llrPath := strings.TrimSuffix(outputPath, ".mkv") + ".llr"

	codecID, err := avio.ParseVideoCodec(c.String("video-codec"))
	if err != nil {
		return err
	}

	hashName := c.String("hash")
	if !hashNameSupported(hashName) {
		return rcerrors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unsupported --hash %s (available: %s)", hashName, strings.Join(avio.HashAlgorithms(), ", ")))
	}

	videoOpts, err := parseKeyValuePairs(c.StringSlice("video-opt"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := transcode.NewPipeline()
	err = pipeline.Compress(ctx, transcode.CompressOptions{
		InputPath:         inputPath,
		OutputPath:        outputPath,
		LLRPath:           llrPath,
		VideoCodec:        codecID,
		VideoCodecOptions: videoOpts,
		HashName:          hashName,
		DumpTablePath:     c.String("dump-table"),
	})
	if err != nil {
		return err
	}

	rclog.Debug("compress: done", "output", outputPath, "llr", llrPath)
	return nil
}

func runDecompress(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return rcerrors.ErrInvalidArgument.WithMessage("decompress requires INPUT.mkv and OUTPUT")
	}
	inputPath := c.Args().Get(0)
	outputPath := c.Args().Get(1)

	if !strings.HasSuffix(inputPath, ".mkv") {
		return rcerrors.ErrExtensionMismatch.WithMessage(inputPath + " must end in .mkv")
	}
	llrPath := strings.TrimSuffix(inputPath, ".mkv") + ".llr"

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := transcode.NewPipeline()
	if err := pipeline.Decompress(ctx, transcode.DecompressOptions{
		InputPath:  inputPath,
		LLRPath:    llrPath,
		OutputPath: outputPath,
	}); err != nil {
		return err
	}

	rclog.Debug("decompress: done", "output", outputPath)
	return nil
}

func hashNameSupported(name string) bool {
	for _, n := range avio.HashAlgorithms() {
		if n == name {
			return true
		}
	}
	return false
}

func parseKeyValuePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, rcerrors.ErrInvalidArgument.WithMessage("--video-opt must be key=value, got " + pair)
		}
		result[k] = v
	}
	return result, nil
}
