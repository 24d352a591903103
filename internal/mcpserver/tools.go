package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Meridian MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolExecuteTrade = mcp.NewTool("execute_trade",
	mcp.WithDescription(
		"Execute a buy or sell trade on Meridian. "+
			"Buys spend the given amount of the quote token (USDC by default); "+
			"sells dispose of the given amount of the base token, or the whole position with amount 'all'. "+
			"Optional take-profit and stop-loss percentages attach automatic exit conditions. "+
			"Use preview_trade first if you want to show the user what will be submitted."),
	mcp.WithString("action",
		mcp.Required(),
		mcp.Description("Trade direction"),
		mcp.Enum("buy", "sell")),
	mcp.WithString("token",
		mcp.Required(),
		mcp.Description("Token to buy or sell: a symbol (e.g. 'SOL', 'ETH') or a raw on-chain address")),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Amount as a decimal string (e.g. '100', '0.5'). When selling, 'all' sells the entire position. "+
			"For buys this is how much of the quote token to spend; for sells, how much of the token to sell.")),
	mcp.WithString("chain",
		mcp.Required(),
		mcp.Description("Chain name: solana, ethereum, base, arbitrum, bsc or polygon (aliases eth/arb/matic)")),
	mcp.WithString("quote",
		mcp.Description("Token to pay with (buy) or receive (sell). Defaults to USDC.")),
	mcp.WithNumber("take_profit",
		mcp.Description("Optional take-profit percentage, e.g. 20 closes the position at +20%")),
	mcp.WithNumber("stop_loss",
		mcp.Description("Optional stop-loss percentage, e.g. 10 closes the position at -10%")),
)

var ToolPreviewTrade = mcp.NewTool("preview_trade",
	mcp.WithDescription(
		"Validate a trade and show the exact intent payload and summary without executing it. "+
			"Takes the same parameters as execute_trade. Nothing is sent to the backend."),
	mcp.WithString("action",
		mcp.Required(),
		mcp.Description("Trade direction"),
		mcp.Enum("buy", "sell")),
	mcp.WithString("token",
		mcp.Required(),
		mcp.Description("Token to buy or sell: a symbol or a raw on-chain address")),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Amount as a decimal string, or 'all' when selling")),
	mcp.WithString("chain",
		mcp.Required(),
		mcp.Description("Chain name: solana, ethereum, base, arbitrum, bsc or polygon (aliases eth/arb/matic)")),
	mcp.WithString("quote",
		mcp.Description("Token to pay with (buy) or receive (sell). Defaults to USDC.")),
	mcp.WithNumber("take_profit",
		mcp.Description("Optional take-profit percentage")),
	mcp.WithNumber("stop_loss",
		mcp.Description("Optional stop-loss percentage")),
)

var ToolGetBalances = mcp.NewTool("get_balances",
	mcp.WithDescription(
		"Get your current token balances on Meridian, optionally filtered to one chain. "+
			"Shows each token with its amount and USD value."),
	mcp.WithString("chain",
		mcp.Description("Optional chain filter: solana, ethereum, base, arbitrum, bsc or polygon")),
)

var ToolGetPositions = mcp.NewTool("get_positions",
	mcp.WithDescription(
		"List your open trading positions with entry price, current value and unrealized PnL."),
)

var ToolStake = mcp.NewTool("stake",
	mcp.WithDescription(
		"Stake AIUSD to earn platform yield. Staked funds are locked until unstaked."),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Amount of AIUSD to stake (e.g. '250')")),
)

var ToolUnstake = mcp.NewTool("unstake",
	mcp.WithDescription(
		"Unstake previously staked AIUSD, returning it to your available balance."),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Amount of AIUSD to unstake, or 'all'")),
)

var ToolWithdraw = mcp.NewTool("withdraw",
	mcp.WithDescription(
		"Withdraw a token from Meridian to an external wallet address. "+
			"The destination address is checked client-side against the chain's address format before submission."),
	mcp.WithString("token",
		mcp.Required(),
		mcp.Description("Token to withdraw: a symbol or a raw on-chain address")),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Amount to withdraw as a decimal string")),
	mcp.WithString("to_address",
		mcp.Required(),
		mcp.Description("Destination wallet address on the target chain")),
	mcp.WithString("chain",
		mcp.Required(),
		mcp.Description("Chain name: solana, ethereum, base, arbitrum, bsc or polygon")),
)

var ToolTradeHistory = mcp.NewTool("trade_history",
	mcp.WithDescription(
		"Show trades previously submitted from this client, newest first. "+
			"This is the local journal, not backend order history."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of trades to return (default 10)")),
)
