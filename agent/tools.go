package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/coinfolio"
	"github.com/etnz/coinfolio/renderer"
	"google.golang.org/genai"
)

func instruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

// newFacilitator creates the expert in charge of the conversation.
func newFacilitator(model string, experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: instruction(`
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user holds a crypto currency portfolio. They come primarily to understand its value,
			its profit and loss, and the news about the coins they hold or watch with price alerts.

			Devise a plan of questions to ask to each experts and come up with the best response to the user's request.
			Never advise to buy or sell, describe the situation instead.
		`),
		},
		Library: NewLibrary(experts),
	}
}

// NewAnalyst creates an expert that follows crypto markets news with Google Search.
func NewAnalyst(model string) *Expert {
	return &Expert{
		Name: "Analyst",
		Description: `This is a crypto market analyst,
		well aware of the coins, the exchanges and the latest news about them.
		Ask the Analyst whenever you need recent or grounding information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: instruction(`
			You are an expert of crypto markets, you can search and find about anything related to
			coins, tokens, exchanges and regulation. You leverage Google Search to
			ground your assertions in a solid truth.
			You can get the latest news too, and you know how to relate them to the user's request.
			`),
		},
	}
}

// NewAccountant creates an expert that reads the portfolio of 't'.
func NewAccountant(model string, t *coinfolio.Tracker, w coinfolio.ChangeWeighting) *Expert {
	lib := Tools(t, w)
	return &Expert{
		Name: "Accountant",
		Description: `This is the Accountant. It is in charge of reading the user's portfolio.
		It knows the holdings, their cost basis, their live value, the profit and loss and the price alerts.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: instruction(`
				You are an accountant in charge of the user's crypto portfolio.
				You know how to use the Tools to extract relevant information about the user's portfolio.
				You are part of a team of experts, yours is everything about the user's portfolio. They might ask
				you questions about the user's portfolio, pardon their approximative language and figure out what they meant.

				Use the available tools to get information about
				  - the holdings, valued at live prices
				  - the distribution of the portfolio
				  - the price alerts
				  - the current price of any coin
			`),
		},
		Library: NewLibrary(lib),
	}
}

// Func implements a simple Function
type Func struct {
	// Declare this function
	Decl *genai.FunctionDeclaration
	// Call this function
	Func func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	return f.Func(ctx, id, args)
}

// Tools returns the functions that read the session of 't'.
func Tools(t *coinfolio.Tracker, w coinfolio.ChangeWeighting) []Function {
	dashboard := &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Dashboard",
			Description: `Dashboard is the user's portfolio valued at the latest live prices:
			total value, 24h change, profit and loss, one card per held coin, the distribution and the price alerts.`,
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown document with tables.",
			},
		},
		Func: func(_ context.Context, id string, _ map[string]any) *genai.FunctionResponse {
			md := renderer.RenderDashboard(renderer.NewDashboard(t.View(w)), renderer.Terminal)
			return outputResponse(id, "Dashboard", md)
		},
	}

	holdings := &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "Holdings",
			Description: `Holdings lists the coins held by the user, one card per coin with its amount, live price, value and profit and loss.`,
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown document with one table per coin.",
			},
		},
		Func: func(_ context.Context, id string, _ map[string]any) *genai.FunctionResponse {
			md := renderer.RenderCards(renderer.NewDashboard(t.View(w)), renderer.Terminal)
			return outputResponse(id, "Holdings", md)
		},
	}

	coinPrice := &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "CoinPrice",
			Description: `CoinPrice returns the market price, the market cap rank and the 24h change of a coin of the catalog.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"coin": {
						Type:        genai.TypeString,
						Description: "The coin id (e.g. bitcoin), its symbol (e.g. BTC) or its name.",
					},
				},
				Required: []string{"coin"},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A one line description of the coin price.",
			},
		},
		Func: func(_ context.Context, id string, args map[string]any) *genai.FunctionResponse {
			query, ok := args["coin"].(string)
			if !ok {
				return errorResponse(id, "CoinPrice", fmt.Errorf("argument 'coin' is not a string as expected but %T", args["coin"]))
			}
			coin, ok := findCoin(t.Catalog(), query)
			if !ok {
				return errorResponse(id, "CoinPrice", fmt.Errorf("unknown coin %q", query))
			}
			price, _ := t.Catalog().Price(coin.ID)
			out := fmt.Sprintf("%s: %s, rank #%d, %s in 24h", coin.Label(), price, coin.MarketCapRank,
				coinfolio.Percent(coin.PriceChangePercentage24h).SignedString())
			return outputResponse(id, "CoinPrice", out)
		},
	}

	return []Function{dashboard, holdings, coinPrice}
}

// findCoin looks up a coin by id, then by symbol or name.
func findCoin(c *coinfolio.Catalog, query string) (coinfolio.Coin, bool) {
	if coin, ok := c.Lookup(query); ok {
		return coin, true
	}
	for _, coin := range c.Coins() {
		if strings.EqualFold(coin.Symbol, query) || strings.EqualFold(coin.Name, query) {
			return coin, true
		}
	}
	return coinfolio.Coin{}, false
}
