package repository

const productFields = `
  id
  title
  status
  descriptionHtml
  mediaCount { count }
  options { name linkedMetafield { namespace key } }
  taxRate: metafield(namespace: $taxNs, key: $taxKey) { value }
  preOrder: metafield(namespace: $preOrderNs, key: $preOrderKey) { value }
  origin: metafield(namespace: $originNs, key: $originKey) { value }
  pendingChanges: metafield(namespace: $pendingNs, key: $pendingKey) { value }
  mainConfirmed: metafield(namespace: $mainNs, key: $mainKey) { value }
`

const variantFields = `
  id
  title
  sku
  price
  selectedOptions { name value }
  inventoryItem { id harmonizedSystemCode countryCodeOfOrigin }
`

const flaggedProductsQuery = `query FlaggedProducts($first: Int!, $after: String, $query: String, $pendingNs: String!, $pendingKey: String!) {
  products(first: $first, after: $after, query: $query) {
    nodes {
      id
      title
      status
      pendingChanges: metafield(namespace: $pendingNs, key: $pendingKey) { value }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const productQuery = `query Product($id: ID!, $first: Int!, $taxNs: String!, $taxKey: String!, $preOrderNs: String!, $preOrderKey: String!, $originNs: String!, $originKey: String!, $pendingNs: String!, $pendingKey: String!, $mainNs: String!, $mainKey: String!) {
  product(id: $id) {` + productFields + `
    collections(first: $first) {
      nodes { id title }
      pageInfo { hasNextPage endCursor }
    }
    variants(first: $first) {
      nodes {` + variantFields + `}
      pageInfo { hasNextPage endCursor }
    }
  }
}`

const productVariantsQuery = `query ProductVariants($id: ID!, $first: Int!, $after: String) {
  product(id: $id) {
    variants(first: $first, after: $after) {
      nodes {` + variantFields + `}
      pageInfo { hasNextPage endCursor }
    }
  }
}`

const productCollectionsQuery = `query ProductCollections($id: ID!, $first: Int!, $after: String) {
  product(id: $id) {
    collections(first: $first, after: $after) {
      nodes { id title }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

const variantsBySKUQuery = `query VariantsBySKU($first: Int!, $after: String, $query: String!) {
  productVariants(first: $first, after: $after, query: $query) {
    nodes { id sku product { id title } }
    pageInfo { hasNextPage endCursor }
  }
}`

const productTaxQuery = `query ProductTax($id: ID!, $ns: String!, $key: String!) {
  product(id: $id) {
    metafield(namespace: $ns, key: $key) { value }
  }
}`

const publicationsQuery = `query Publications($first: Int!, $after: String) {
  publications(first: $first, after: $after) {
    nodes { id name }
    pageInfo { hasNextPage endCursor }
  }
}`

const catalogsQuery = `query Catalogs($query: String!) {
  catalogs(first: 10, query: $query) {
    nodes { id title publication { id } }
  }
}`

const metaobjectQuery = `query Metaobject($type: String!, $handle: String!) {
  metaobjectByHandle(handle: { type: $type, handle: $handle }) {
    id
    type
    handle
    fields { key value }
  }
}`

const productUpdateMutation = `mutation SetStatus($product: ProductUpdateInput!) {
  productUpdate(product: $product) {
    product { id status }
    userErrors { field message }
  }
}`

const metafieldsSetMutation = `mutation SetMetafields($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    userErrors { field message }
  }
}`

const publishMutation = `mutation Publish($id: ID!, $input: [PublicationInput!]!) {
  publishablePublish(id: $id, input: $input) {
    userErrors { field message }
  }
}`
