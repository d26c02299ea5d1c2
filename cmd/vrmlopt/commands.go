package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Faultbox/vrmlopt/internal/config"
	"github.com/Faultbox/vrmlopt/internal/logger"
	"github.com/Faultbox/vrmlopt/internal/optimize"
	"github.com/Faultbox/vrmlopt/internal/worker"
	"github.com/Faultbox/vrmlopt/pkg/encoding"
	"github.com/Faultbox/vrmlopt/pkg/export"
	"github.com/Faultbox/vrmlopt/pkg/vrml"
)

// outputSuffix marks files written by vrmlopt.
const outputSuffix = ".opt.wrl"

func readDocument(path, charset string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return encoding.DecodeWith(data, charset)
}

func outputPath(in, dir, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + suffix
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, base)
}

func newPipeline(cfg *config.Config) (*optimize.Pipeline, optimize.Params, error) {
	params, err := optimize.ParamsFromConfig(cfg.Simplify)
	if err != nil {
		return nil, params, err
	}
	return optimize.New(logger.Named("optimize")), params, nil
}

// optimizer returns the optimized text of the document at path.
type optimizer func(ctx context.Context, path string) (string, error)

// newOptimizer runs documents in process, or on the worker at remote when it
// is set. The returned func releases the connection.
func newOptimizer(ctx context.Context, cfg *config.Config, remote string) (optimizer, func(), error) {
	p, params, err := newPipeline(cfg)
	if err != nil {
		return nil, nil, err
	}

	if remote == "" {
		opt := func(ctx context.Context, path string) (string, error) {
			res, err := optimizeFile(ctx, cfg, p, params, path)
			if err != nil {
				return "", err
			}
			return res.VRML, nil
		}
		return opt, func() {}, nil
	}

	client := worker.NewClient(remote, logger.Named("client"))
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}
	fuse := cfg.Simplify.FuseShapes
	opt := func(ctx context.Context, path string) (string, error) {
		content, err := readDocument(path, cfg.Input.Charset)
		if err != nil {
			return "", err
		}
		logger.Debug("sending document", zap.String("file", path), zap.String("remote", remote))
		resp, err := client.Do(ctx, worker.Request{
			VRML:              content,
			MergeCutoff:       params.MergeCutoff,
			ReductionFraction: params.ReductionFraction,
			Strategy:          cfg.Simplify.Strategy,
			FuseShapes:        &fuse,
		})
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		if !resp.Success {
			return "", fmt.Errorf("%s: remote: %s", path, resp.Error)
		}
		logger.Info("document optimized",
			zap.String("file", path),
			zap.String("remote", remote),
			zap.Int("shapes", len(resp.Stats)))
		return resp.VRML, nil
	}
	return opt, client.Disconnect, nil
}

func optimizeFile(ctx context.Context, cfg *config.Config, p *optimize.Pipeline, params optimize.Params, in string) (*optimize.Result, error) {
	content, err := readDocument(in, cfg.Input.Charset)
	if err != nil {
		return nil, err
	}
	logger.Debug("document read", zap.String("file", in), zap.Int("bytes", len(content)))
	start := time.Now()
	res, err := p.Process(ctx, content, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}
	logger.Info("document optimized",
		zap.String("file", in),
		zap.Int("shapes", len(res.Chunks)),
		zap.Bool("fused", res.Fused),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func cmdSimplify(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("simplify", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default: stdout)")
	remote := fs.String("remote", "", "Send the document to a running worker (ws://host:port/ws)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: vrmlopt simplify [-o out] [-remote url] <file.wrl>")
	}

	ctx := context.Background()
	opt, done, err := newOptimizer(ctx, cfg, *remote)
	if err != nil {
		return err
	}
	defer done()

	doc, err := opt(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	if *out == "" {
		_, err = os.Stdout.WriteString(doc)
		return err
	}
	return os.WriteFile(*out, []byte(doc), 0o644)
}

func cmdInfo(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vrmlopt info <file.wrl>")
	}

	content, err := readDocument(args[0], cfg.Input.Charset)
	if err != nil {
		return err
	}
	doc, err := vrml.Parse(content, vrml.WithLogger(logger.Named("vrml")))
	if err != nil {
		return err
	}

	pr := message.NewPrinter(language.English)
	var vertices, faces int
	for _, ch := range doc.Chunks {
		vertices += len(ch.Vertices)
		faces += ch.FaceCount()
	}

	pr.Printf("Document: %s\n", args[0])
	pr.Printf("Shapes:   %d (%d with geometry)\n", len(doc.Shapes), len(doc.Chunks))
	pr.Printf("Vertices: %d\n", vertices)
	pr.Printf("Faces:    %d\n", faces)
	if len(doc.Chunks) == 0 {
		return nil
	}
	pr.Println()
	pr.Printf("  %-6s %12s %12s %8s\n", "Shape", "Vertices", "Faces", "Normals")
	for i, ch := range doc.Chunks {
		pr.Printf("  %-6d %12d %12d %8t\n", i, len(ch.Vertices), ch.FaceCount(), len(ch.Normals) > 0)
	}
	return nil
}

func cmdExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default: <input>.glb)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: vrmlopt export [-o out.glb] <file.wrl>")
	}
	in := fs.Arg(0)
	if *out == "" {
		*out = outputPath(in, "", ".glb")
	}

	p, params, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	res, err := optimizeFile(context.Background(), cfg, p, params, in)
	if err != nil {
		return err
	}
	if err := export.SaveGLB(*out, res.Chunks); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	logger.Info("exported", zap.String("file", *out))
	return nil
}

// batchOutputs maps every input to its output path and rejects inputs that
// would write the same file.
func batchOutputs(inputs []string, dir string) ([]string, error) {
	outputs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		out := outputPath(in, dir, outputSuffix)
		if prev, dup := seen[out]; dup {
			return nil, fmt.Errorf("%s and %s would both write %s", prev, in, out)
		}
		seen[out] = in
		outputs[i] = out
	}
	return outputs, nil
}

func cmdBatch(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	jobs := fs.Int("j", 4, "Documents processed at once")
	dir := fs.String("d", "", "Output directory (default: next to each input)")
	remote := fs.String("remote", "", "Send documents to a running worker (ws://host:port/ws)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: vrmlopt batch [-j N] [-d dir] [-remote url] <files...>")
	}
	inputs := fs.Args()
	outputs, err := batchOutputs(inputs, *dir)
	if err != nil {
		return err
	}
	if *dir != "" {
		if err := os.MkdirAll(*dir, 0o755); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opt, done, err := newOptimizer(ctx, cfg, *remote)
	if err != nil {
		return err
	}
	defer done()

	// The first failure cancels the documents still waiting.
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*jobs, 1))
	for i, in := range inputs {
		i, in := i, in // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			doc, err := opt(ctx, in)
			if err != nil {
				return err
			}
			return os.WriteFile(outputs[i], []byte(doc), 0o644)
		})
	}
	return g.Wait()
}

func cmdServe(cfg *config.Config, args []string) error {
	params, err := optimize.ParamsFromConfig(cfg.Simplify)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := worker.NewHandler(params, logger.Named("worker"))
	srv := worker.NewServer(h, cfg.Server, logger.Named("server"))
	return srv.ListenAndServe(ctx)
}

func cmdInitConfig(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return cfg.SaveTo(args[0])
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Println(filepath.Join(config.ConfigDir(), config.FileName))
	return nil
}
