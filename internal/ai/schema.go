package ai

// creationsSchemaDescription describes the ClickHouse schema used for NL→SQL prompting.
//
// Keeping it in sync with the actual ClickHouse table definition in init.sql.
const creationsSchemaDescription = `
Database: solana
Table: pool_creations

Columns:
  - signature  String        -- Solana transaction signature (unique id)
  - timestamp  DateTime      -- Time the creation was submitted (UTC)
  - pool       String        -- Pool account address
  - creator    String        -- Creator wallet address
  - token_0    String        -- First mint of the canonical pair
  - token_1    String        -- Second mint of the canonical pair
  - config     String        -- Fee-tier config account address
  - amount_0   UInt64        -- Initial deposit of token_0 (raw units)
  - amount_1   UInt64        -- Initial deposit of token_1 (raw units)
  - status     String        -- "confirmed" or "failed"
  - error_kind String        -- Failure bucket when status = "failed", else empty

Notes:
  - Count confirmed pools with countIf(status = 'confirmed').
  - Failure rates group naturally by error_kind.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`
