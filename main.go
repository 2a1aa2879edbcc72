package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ebfe/scard"
	"go.uber.org/zap"

	"github.com/spk23/starcos/pkg/starcos"
)

func main() {
	// --- 1. Hardware Setup ---
	ctx, conn := connectToCard()

	defer func() {
		if err := ctx.Release(); err != nil {
			log.Printf("Warning: Failed to release context: %v", err)
		}
	}()

	defer func() {
		if err := conn.Disconnect(scard.LeaveCard); err != nil {
			log.Printf("Warning: Failed to disconnect card: %v", err)
		}
	}()

	// --- 2. Logic Setup ---
	status, err := conn.Status()
	if err != nil {
		log.Fatalf("Error reading card status: %s", err)
	}

	fmt.Printf(">> ATR: %X\n", status.Atr)
	if !starcos.Match(status.Atr) {
		log.Fatal("The inserted card is not a STARCOS SPK 2.3 card.")
	}

	logger := zap.NewNop()
	if os.Getenv("STARCOS_DEBUG") != "" {
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Error creating logger: %s", err)
		}
	}

	card := starcos.NewCard(conn, starcos.WithLogger(logger))

	// --- 3. Execution Flow ---

	// Step 1: Select the master file.
	step1SelectMF(card)

	// Step 2: Walk the filesystem path given on the command line (if any).
	step2WalkPath(card)

	// Step 3: Show the card's signing capabilities.
	step3ShowAlgorithms(card)

	fmt.Println("\n>> Demo Finished Successfully")
}

// connectToCard handles the PC/SC context establishment and reader connection.
func connectToCard() (*scard.Context, *scard.Card) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		log.Fatalf("Error establishing context: %s", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		if relErr := ctx.Release(); relErr != nil {
			log.Printf("Warning: Failed to release context during error handling: %v", relErr)
		}
		log.Fatal("No smart card reader found.")
	}

	fmt.Printf(">> Using reader: %s\n", readers[0])

	card, err := ctx.Connect(readers[0], scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		if relErr := ctx.Release(); relErr != nil {
			log.Printf("Warning: Failed to release context during error handling: %v", relErr)
		}
		log.Fatalf("Error connecting to card: %s", err)
	}

	return ctx, card
}

func step1SelectMF(card *starcos.Card) {
	fmt.Println("\n=============================================")
	fmt.Println(" Step 1: SELECT MF (3F00)")
	fmt.Println("=============================================")

	file, err := card.SelectFile(starcos.FileIDPath(starcos.MFID))
	if err != nil {
		log.Fatalf("MF selection failed: %v", err)
	}
	if file != nil {
		fmt.Printf(">> Selected: %s\n", file)
	}
}

func step2WalkPath(card *starcos.Card) {
	fmt.Println("\n=============================================")
	fmt.Println(" Step 2: WALK PATH")
	fmt.Println("=============================================")

	if len(os.Args) < 2 {
		fmt.Println(">> No path given; skipping. Usage: starcos 3F00 1001 2001")
		return
	}

	ids := make([]uint16, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		var id uint16
		if _, err := fmt.Sscanf(arg, "%04X", &id); err != nil {
			log.Fatalf("Invalid file ID %q: %v", arg, err)
		}
		ids = append(ids, id)
	}

	file, err := card.SelectFile(starcos.FilePath(ids...))
	if err != nil {
		log.Fatalf("Path selection failed: %v", err)
	}
	if file == nil {
		fmt.Println(">> Already selected (cache hit).")
		return
	}

	fmt.Printf(">> Selected: %s\n", file)
	if file.Type == starcos.FileTypeWorkingEF {
		fmt.Printf("   Structure:     %s\n", file.Structure)
		fmt.Printf("   Size:          %d bytes\n", file.Size)
		if file.RecordLength > 0 {
			fmt.Printf("   Record length: %d bytes\n", file.RecordLength)
		}
	}
}

func step3ShowAlgorithms(card *starcos.Card) {
	fmt.Println("\n=============================================")
	fmt.Println(" Step 3: CARD CAPABILITIES")
	fmt.Println("=============================================")

	for _, alg := range card.Algorithms() {
		fmt.Printf(">> RSA %4d bit, exponent %d\n", alg.KeyLength, alg.Exponent)
	}
	fmt.Printf(">> Max read length: %d bytes\n", card.MaxReadLen())
}
