package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/apeng2012/mkboot"
)

func checkWrap(err error) {
	if err == nil {
		return
	}

	errs := mkboot.GetErrors(err)
	if len(errs) == 2 {
		step := errs[0]
		if strings.ContainsRune(step, ';') {
			step = step[:strings.IndexByte(step, ';')+1]
		}

		fmt.Printf(" ! Error %s!\n", step)
		fmt.Printf(" ! %s\n", errs[1])
	} else {
		fmt.Println(" ! Error!")
		fmt.Printf(" ! %s\n", err.Error())
	}

	os.Exit(2)
}

// writeOutput writes data to path, removing the file again if the write
// fails so that no truncated image is left looking complete.
func writeOutput(path string, data []byte) {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	checkMsg(err, "creating output file")

	_, err = out.Write(data)
	if err == nil {
		err = out.Close()
	} else {
		out.Close()
	}

	if err != nil {
		os.Remove(path)
		checkMsg(err, "writing output file")
	}
}

func buildImage(inputPath, outputPath string, align int, rawInput bool) {
	fmt.Printf(" - Reading '%s'\n", inputPath)
	data, err := os.ReadFile(inputPath)
	checkMsg(err, "reading input file")

	code := data
	if rawInput {
		fmt.Println(" - Treating input as a raw binary")
	} else {
		var desc string
		code, desc, err = mkboot.LoadCode(data)
		checkWrap(err)
		fmt.Printf(" - Detected %s\n", desc)
	}

	fmt.Println(" - Building boot image")
	image, err := mkboot.BuildImageAligned(code, align)
	checkWrap(err)

	fmt.Printf(" - Writing '%s'\n", outputPath)
	writeOutput(outputPath, image)

	fmt.Printf(" - Created '%s'\n", outputPath)
	fmt.Printf("     Code size: %d bytes\n", len(code))
	fmt.Printf("     Total size: %d bytes (aligned to %d)\n", len(image), align)
	fmt.Printf("     Code starts at: 0x%02X\n", mkboot.CodeStart)
	fmt.Printf("     Checksum: 0x%08X\n", mkboot.Checksum(image))
	fmt.Printf("     Fingerprint: %016x\n", mkboot.Fingerprint(image))
}

func extractImage(inputPath, outputPath string) {
	fmt.Printf(" - Reading '%s'\n", inputPath)
	in, err := os.Open(inputPath)
	checkMsg(err, "opening image for reading")
	defer in.Close()

	image, err := mkboot.UnpackImage(in)
	checkWrap(err)
	fmt.Printf(" - Found eGON.BT0 header at offset %d\n", image.Offset)

	fmt.Println(" - Verifying checksum")
	checkWrap(image.VerifyChecksum())

	code := image.Code()
	fmt.Printf(" - Writing '%s'\n", outputPath)
	writeOutput(outputPath, code)

	fmt.Printf(" - Finished! Output is '%s'.\n", outputPath)
	fmt.Printf("     Code region: %d bytes (tail padding included)\n", len(code))
}

func checkImage(inputPath string) {
	fmt.Printf(" - Reading '%s'\n", inputPath)
	in, err := os.Open(inputPath)
	checkMsg(err, "opening image for reading")
	defer in.Close()

	image, err := mkboot.UnpackImage(in)
	checkWrap(err)

	fmt.Printf(" - Found eGON.BT0 header at offset %d\n", image.Offset)
	fmt.Printf(" - %s\n", image.Header.String())

	fmt.Println(" - Verifying checksum")
	checkWrap(image.VerifyChecksum())

	fmt.Printf(" - Checksum OK (0x%08X)\n", image.Header.Checksum)
	fmt.Printf(" - Fingerprint: %016x\n", image.Fingerprint())
}
