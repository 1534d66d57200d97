// crcsum 以流式方式计算文件或标准输入的 CRC-32
//
//	crcsum [flags] [file ...]
//
// 无参数或参数为 "-" 时读取标准输入。每个输入输出一行：8 位十六进制校验值、字节数、名称。
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/lk2023060901/crcstream/pkg/app"
	"github.com/lk2023060901/crcstream/pkg/batch"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	stdinMarker = "-"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(app.AppName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	app.RegisterFlags(fs)
	showVersion := fs.BoolP("version", "v", false, "print version and exit")
	decimal := fs.Bool("decimal", false, "print checksums in decimal")

	// 1. 解析参数并加载配置
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := app.LoadConfig(fs)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitUsage
	}

	// 2. 初始化应用（日志、指标）
	application, err := app.New(cfg, app.WithStdout(stdout))
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize: %v\n", err)
		return exitUsage
	}
	defer application.Shutdown()

	if *showVersion {
		application.PrintVersion()
		return exitOK
	}

	l := application.Logger()

	// 3. 收到中断信号时取消所有校验
	ctx, stop := application.SignalContext(context.Background())
	defer stop()

	// 4. 并发校验
	results, err := application.Checksum(ctx, entries(fs.Args(), stdin))
	if err != nil {
		l.Error("checksum failed", "error", err)
		return exitFailed
	}

	// 5. 按输入顺序输出
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", app.AppName, r.Err)
			continue
		}
		if *decimal {
			fmt.Fprintf(stdout, "%d %d %s\n", r.Digest.CRC32, r.Digest.Size, r.Name)
		} else {
			fmt.Fprintf(stdout, "%08x %d %s\n", r.Digest.CRC32, r.Digest.Size, r.Name)
		}
	}

	if n := results.Failed(); n > 0 {
		l.Warn("some inputs failed", "failed", n, "total", len(results))
		return exitFailed
	}
	return exitOK
}

func entries(names []string, stdin io.Reader) []batch.Entry {
	if len(names) == 0 {
		names = []string{stdinMarker}
	}

	out := make([]batch.Entry, 0, len(names))
	for _, name := range names {
		if name == stdinMarker {
			out = append(out, batch.Entry{Name: stdinMarker, Input: stdin})
			continue
		}
		out = append(out, batch.FileEntry(name))
	}
	return out
}
