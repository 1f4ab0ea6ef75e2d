package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apeng2012/mkboot"
	"github.com/mattn/go-isatty"

	flag "github.com/spf13/pflag"
)

// General command-line interface constants
const (
	TargetChip = "F1C100S"
)

func checkMsg(err error, msg string) {
	if err != nil {
		fmt.Printf(" ! Error %s!\n", msg)
		fmt.Printf(" ! %s\n", err.Error())
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("Usage: mkboot [flags] <input.bin> <output.img>")
	fmt.Println()
	fmt.Printf("Creates a bootable image for %s SPI flash or SD card\n", TargetChip)
	fmt.Println("by adding an eGON.BT0 header to the input binary.")
	fmt.Println()
	flag.PrintDefaults()
}

func main() {
	var inputPath string
	var outputPath string
	var check bool
	var extract bool
	var nand bool
	var rawInput bool

	flag.StringVarP(&inputPath, "input", "i", "", "Path to the program binary to wrap.")
	flag.StringVarP(&outputPath, "output", "o", "", "Path to write the boot image to.")
	flag.BoolVarP(&check, "check", "c", false, "Verify an existing boot image instead of building one.")
	flag.BoolVarP(&extract, "extract", "x", false, "Strip the eGON.BT0 header from an image instead of adding one.")
	flag.BoolVarP(&nand, "nand", "n", false, "Align the image for NAND pages (8192 bytes) instead of SD/SPI blocks (512).")
	flag.BoolVar(&rawInput, "raw", false, "Treat the input as a raw binary even if it looks like ELF, Intel HEX or gzip.")

	fmt.Printf("mkboot for the Allwinner %s\neGON.BT0 boot image builder\n\n", TargetChip)

	flag.ErrHelp = errors.New("")
	flag.Parse()

	if flag.NArg() > 2 {
		usage()
		os.Exit(2)
	}

	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	interactivePath := false

	if inputPath == "" {
		if flag.NArg() > 0 {
			inputPath = flag.Arg(0)
		} else {
			usage()
			if !interactive {
				os.Exit(2)
			}

			defer func() {
				fmt.Print("\n\nPress any key to continue...")
				reader := bufio.NewReader(os.Stdin)
				reader.ReadRune()
			}()

			inputPath = cliGetInputPath()
			interactivePath = true
		}
	}

	if !interactivePath {
		fInfo, err := os.Stat(inputPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Printf(" ! Input file '%s' does not exist!\n", inputPath)
				fmt.Println(" ! Please check the path and try again.")
			} else {
				checkMsg(err, "verifying file")
			}

			os.Exit(2)
		}

		if fInfo.IsDir() {
			fmt.Println(" ! Input is a directory!")
			fmt.Println(" ! Please provide a file.")
			os.Exit(2)
		} else if (check || extract) && fInfo.Size() < mkboot.SDBlockSize {
			fmt.Println(" ! Input is too small!")
			fmt.Printf(" ! Are you sure '%s' is an eGON.BT0 image?\n", fInfo.Name())
			os.Exit(2)
		}
	}

	if check {
		checkImage(inputPath)
		return
	}

	if outputPath == "" {
		if flag.NArg() > 1 {
			outputPath = flag.Arg(1)
		} else if interactivePath {
			ext := filepath.Ext(inputPath)
			base := filepath.Base(inputPath)
			dir, _ := filepath.Split(inputPath)

			newName := strings.TrimSuffix(base, ext)
			if extract {
				newName += "-code.bin"
			} else {
				newName += ".img"
			}

			outputPath = filepath.Join(dir, newName)
		} else {
			usage()
			os.Exit(2)
		}
	}

	if extract {
		extractImage(inputPath, outputPath)
	} else {
		align := mkboot.SDBlockSize
		if nand {
			align = mkboot.NANDPageSize
		}

		buildImage(inputPath, outputPath, align, rawInput)
	}
}
