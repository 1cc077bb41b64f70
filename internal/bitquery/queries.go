package bitquery

// Solana constants used by the feed queries.
const (
	// PumpFunProgram is the pump.fun bonding-curve program.
	PumpFunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	// pumpFunCreateMethod is the token-creation instruction method.
	pumpFunCreateMethod = "create"

	// nativeSOLMint is the sentinel mint excluded from the price feed.
	nativeSOLMint = "11111111111111111111111111111111"
)

// tokenCreationQuery fetches pump.fun create instructions since the
// cursor, newest first.
const tokenCreationQuery = `
query NewTokens($since: DateTime, $program: String!, $method: String!) {
  Solana {
    Instructions(
      where: {
        Instruction: {
          Program: {
            Address: { is: $program }
            Method: { is: $method }
          }
        }
        Block: { Time: { since: $since } }
        Transaction: { Result: { Success: true } }
      }
      orderBy: { descending: Block_Time }
    ) {
      Block {
        Time
      }
      Transaction {
        Signature
      }
      Instruction {
        Accounts {
          Address
        }
      }
    }
  }
}`

// dexTradesQuery fetches the latest pump.fun trade per bought currency
// since the cursor, newest first, excluding the native SOL sentinel.
const dexTradesQuery = `
query LatestTrades($since: DateTime, $excluded: [String!]) {
  Solana {
    DEXTrades(
      limitBy: { by: Trade_Buy_Currency_MintAddress, count: 1 }
      orderBy: { descending: Block_Time }
      where: {
        Trade: {
          Dex: { ProtocolFamily: { is: "pump" } }
          Buy: { Currency: { MintAddress: { notIn: $excluded } } }
        }
        Transaction: { Result: { Success: true } }
        Block: { Time: { since: $since } }
      }
    ) {
      Block {
        Time
      }
      Trade {
        Buy {
          Price
          PriceInUSD
          Currency {
            Uri
            MintAddress
            Name
            Symbol
          }
        }
      }
    }
  }
}`

// tokenSupplyQuery fetches the newest supply snapshot for one mint.
const tokenSupplyQuery = `
query MarketData($mint: String!) {
  Solana {
    TokenSupplyUpdates(
      limit: { count: 1 }
      orderBy: { descending: Block_Time }
      where: {
        TokenSupplyUpdate: { Currency: { MintAddress: { is: $mint } } }
      }
    ) {
      TokenSupplyUpdate {
        PostBalance
        PostBalanceInUSD
        Currency {
          Name
          Symbol
        }
      }
    }
  }
}`
