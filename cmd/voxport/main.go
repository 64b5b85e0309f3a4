package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	"github.com/voxport/voxport/config"
	"github.com/voxport/voxport/importer"
	"github.com/voxport/voxport/report"
	"github.com/voxport/voxport/smfexport"
	"github.com/voxport/voxport/ustx"
	"github.com/voxport/voxport/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the original project file is.")
	midiOut := flag.Bool("m", false, "Also output the project as a .mid file.")
	printReport := flag.Bool("r", false, "Print a summary of every import to standard error.")
	reportTemplate := flag.String("t", "", "Template file for the summary; implies -r.")
	configFile := flag.String("c", "", "Config file. By default, voxport/config.yml in the user config directory is used if it exists.")
	logLevel := flag.String("log", "", "Log level: debug, info, warn or error. Overrides the config file.")
	sjis := flag.Bool("sjis", false, "Encode the lyrics of the .mid files in Shift_JIS.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.Long())
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	var cfg config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, _, err = config.LoadUser()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	var reporter *report.Reporter
	if *reportTemplate != "" {
		reporter, err = report.NewFromFile(*reportTemplate)
	} else if *printReport {
		reporter, err = report.New()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	midiOptions := smfexport.Options{BendRange: cfg.BendRange, BendStep: cfg.BendStep}
	if *sjis {
		midiOptions.Lyrics = encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder())
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	im := importer.New(cfg, importer.WithLogger(logger))
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				_, err := os.Stdout.Write(contents)
				return err
			}
			dir, name := filepath.Split(filename)
			if *directory != "" {
				dir = *directory
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if dir != "" {
				if err := os.MkdirAll(dir, os.ModePerm); err != nil {
					return fmt.Errorf("could not create output directory %v: %v", dir, err)
				}
			}
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		res, err := im.ImportFile(ctx, filename)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := ustx.Write(&buf, res.Project); err != nil {
			return fmt.Errorf("could not generate .ustx file: %v", err)
		}
		if err := output(".ustx", buf.Bytes()); err != nil {
			return fmt.Errorf("error outputting .ustx file: %v", err)
		}
		if *midiOut {
			buf.Reset()
			if err := smfexport.Write(&buf, res.Project, midiOptions); err != nil {
				return fmt.Errorf("could not generate .mid file: %v", err)
			}
			if err := output(".mid", buf.Bytes()); err != nil {
				return fmt.Errorf("error outputting .mid file: %v", err)
			}
		}
		if reporter != nil {
			if err := reporter.Render(os.Stderr, res); err != nil {
				return err
			}
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			var files []string
			for _, pattern := range []string{"*.svp", "*.json", "*.ccs"} {
				matches, err := filepath.Glob(filepath.Join(param, pattern))
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not glob the path %v for %v files: %v\n", param, pattern, err)
					retval = 1
					continue
				}
				files = append(files, matches...)
			}
			for _, file := range files {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "voxport converts singing synthesizer projects (.svp, .ccs) to OpenUtau .ustx files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
