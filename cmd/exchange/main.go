package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tyr/internal/catalog"
	"tyr/internal/common"
	"tyr/internal/engine"
)

// The shell is a thin wrapper over the engine: it seeds a demo catalog,
// starts the background loop and translates text commands into the engine's
// read-only reports or test-order submissions.

func main() {
	// Optional overrides (LOG_LEVEL, TICK) from a local .env.
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	cfg := engine.DefaultConfig()
	if tick, err := time.ParseDuration(os.Getenv("TICK")); err == nil && tick > 0 {
		cfg.Tick = tick
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cat := catalog.New()
	seedInstruments(cat)

	book := engine.NewOrderBook()
	eng := engine.New(book, cat, cfg)
	eng.Start()
	defer eng.Stop()

	fmt.Print(eng.Help())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	nextOrderID := 1000
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "status":
				printStatus(eng.Status())
			case "stats":
				printStats(eng.DetailedStats())
			case "gtd":
				printGTD(eng.GTDOrders())
			case "order":
				nextOrderID++
				submitTestOrder(eng, cat, nextOrderID)
			case "display":
				printBook(book)
			case "trades":
				printTrades(book)
			case "help":
				fmt.Print(eng.Help())
			case "quit":
				return
			case "":
			default:
				fmt.Printf("Unknown command %q, try 'help'\n", line)
			}
		}
	}
}

// seedInstruments populates the demo catalog, including a duplicate add to
// show triple-uniqueness rejection.
func seedInstruments(cat *catalog.Catalog) {
	cat.Add(common.NewInstrument(1, "XPAR", "EUR", "AAPL", 20220101, common.Active,
		150, 1001, 100, 2, 1, 1, 2022))
	cat.Add(common.NewInstrument(2, "XPAR", "EUR", "MSFT", 20220102, common.Active,
		2740.01, 1002, 400, 2, 2, 2, 2023))
	// Same triple as the first, expected to be rejected.
	cat.Add(common.NewInstrument(1, "XPAR", "EUR", "AAPL", 20220101, common.Active,
		150, 1001, 100, 2, 1, 1, 2022))
	cat.Add(common.NewInstrument(3, "XPAR", "GBP", "NVDI", 20220101, common.Active,
		150, 1001, 100, 2, 1, 1, 2022))
}

// submitTestOrder places a randomized order against the first instrument,
// alternating around its reference price so repeated use produces crossings.
func submitTestOrder(eng *engine.Engine, cat *catalog.Catalog, id int) {
	instruments := cat.Instruments()
	if len(instruments) == 0 {
		fmt.Println("No instruments in the catalog")
		return
	}
	inst := instruments[0]

	side := common.Bid
	if rand.Intn(2) == 1 {
		side = common.Ask
	}
	// Stay on-tick and on-lot.
	price := inst.RefPrice + float64(rand.Intn(11)-5)
	qty := inst.LotSize * int64(1+rand.Intn(5))

	order := common.NewDayOrder(id, inst.MIC, inst.Currency, time.Now(), price, qty,
		side, common.Limit, inst.ID, qty, 9000)
	if err := eng.Submit(order); err != nil {
		fmt.Printf("Order rejected: %v\n", err)
		return
	}
	fmt.Printf("Submitted %v order %d: %d @ %.2f\n", side, id, qty, price)
}

func printStatus(s engine.EngineStatus) {
	state := "Stopped"
	if s.Running {
		state = "Running"
	}
	fmt.Println("=== Trading Engine Status ===")
	fmt.Printf("Time:          %s\n", s.Time.Format(time.DateTime))
	fmt.Printf("Engine Status: %s\n", state)
	fmt.Printf("Daily Trades:  %d\n", s.DailyTrades)
	fmt.Printf("Daily Volume:  %.2f\n", s.DailyVolume)
	fmt.Printf("Total Trades:  %d\n", s.TotalTrades)
	fmt.Printf("Instruments:   %d\n", s.Instruments)
	fmt.Printf("BID Levels:    %d\n", s.BidLevels)
	fmt.Printf("ASK Levels:    %d\n", s.AskLevels)
}

func printStats(s engine.DetailedStats) {
	fmt.Println("=== Detailed Trading Statistics ===")
	fmt.Printf("Time:               %s\n", s.Time.Format(time.DateTime))
	fmt.Printf("Trades Today:       %d\n", s.DailyTrades)
	fmt.Printf("Daily Volume:       %.2f\n", s.DailyVolume)
	fmt.Printf("Total Trades:       %d\n", s.TotalTrades)
	fmt.Printf("Total Volume:       %.2f\n", s.TotalVolume)
	fmt.Printf("Matching Attempts:  %d\n", s.MatchingAttempts)
	fmt.Printf("Successful Matches: %d\n", s.SuccessfulMatches)
	fmt.Printf("Success Rate:       %.1f%%\n", s.SuccessRate)
	fmt.Printf("Last Reset:         %s\n", s.LastReset.Format(time.DateTime))
}

func printGTD(orders []engine.GTDStatus) {
	fmt.Println("=== GTD Orders Status ===")
	if len(orders) == 0 {
		fmt.Println("No GTD orders currently in the book.")
		return
	}
	for _, o := range orders {
		fmt.Printf("%v order %d (Price: %.2f, Qty: %d) expires in %v\n",
			o.Side, o.OrderID, o.Price, o.Quantity, o.ExpiresIn.Round(time.Minute))
	}
}

func printBook(book *engine.OrderBook) {
	fmt.Println("============== ORDER BOOK ==============")
	for _, side := range []common.Side{common.Bid, common.Ask} {
		fmt.Printf("\n%v Orders:\n", side)
		for _, level := range book.Levels(side) {
			fmt.Printf("Price LEVEL: %.2f\n", level.Price)
			for _, order := range level.Orders {
				fmt.Printf("  order %d qty %d (original %d) %v\n",
					order.ID, order.Quantity, order.OriginalQty, order.TimeInForce)
			}
		}
	}
}

func printTrades(book *engine.OrderBook) {
	trades := book.Trades()
	fmt.Println("============== TRADE HISTORY ==============")
	if len(trades) == 0 {
		fmt.Println("No trades have been executed yet.")
		return
	}
	for _, trade := range trades {
		fmt.Printf("trade %d: buy %d / sell %d, %d @ %.2f (%s %s) at %s\n",
			trade.ID, trade.BuyOrderID, trade.SellOrderID, trade.Quantity, trade.Price,
			trade.MIC, trade.Currency, trade.Timestamp.Format(time.TimeOnly))
	}
}
