// Package sample writes mock workbook and flow documents. The files are
// fixed text, so generated fixtures parse the same way on every run; they
// exercise calculated fields, joins, parameters, and a deliberate
// unresolved reference.
package sample

import (
	"fmt"
	"os"
	"path/filepath"
)

const workbookXML = `<?xml version="1.0" encoding="utf-8"?>
<workbook version="18.1">
  <datasource name="Parameters" caption="Parameters">
    <column name="[Top N]" caption="Top N" datatype="integer" value="10"/>
  </datasource>
  <datasource name="federated.0abc123" caption="Superstore Sales">
    <connection class="postgres" server="analytics.internal" dbname="superstore" schema="public" username="reporting"/>
    <relation type="join" join="left">
      <clause type="join" expression="[orders].[customer_id] = [customers].[id]"/>
      <relation type="table" name="[orders]" table="[public].[orders]"/>
      <relation type="table" name="[customers]" table="[public].[customers]"/>
    </relation>
    <column name="[Sales]" caption="Sales" role="measure" datatype="real"/>
    <column name="[Profit]" caption="Profit" role="measure" datatype="real"/>
    <column name="[Region]" caption="Region" role="dimension" datatype="string"/>
    <column name="[Profit Ratio]" caption="Profit Ratio" role="measure" datatype="real">
      <calculation formula="[Profit] / [Sales]"/>
    </column>
    <column name="[Big Sale]" caption="Big Sale" role="dimension" datatype="boolean">
      <calculation formula="[Sales] &gt; [Top N] // threshold parameter"/>
    </column>
    <column name="[Broken Metric]" caption="Broken Metric" role="measure" datatype="real">
      <calculation formula="[Sales] - [Discount Amount]"/>
    </column>
  </datasource>
  <worksheet name="Sales by Region">
    <datasource-dependencies datasource="federated.0abc123">
      <column name="[Region]"/>
      <column name="[Sales]"/>
      <column name="[Profit Ratio]"/>
    </datasource-dependencies>
    <filter class="categorical" field="[Region]"/>
  </worksheet>
  <worksheet name="Profit Detail">
    <datasource-dependencies datasource="federated.0abc123">
      <column name="[Profit]"/>
      <column name="[Big Sale]"/>
    </datasource-dependencies>
  </worksheet>
  <dashboard name="Executive Overview">
    <zones>
      <zone name="Sales by Region"/>
      <zone name="Profit Detail"/>
    </zones>
  </dashboard>
</workbook>
`

const flowXML = `<?xml version="1.0" encoding="utf-8"?>
<flow version="2023.1">
  <nodes>
    <node id="input.orders" name="Load Orders" type="input">
      <connection class="csv" server=""/>
    </node>
    <node id="input.customers" name="Load Customers" type="input">
      <connection class="csv" server=""/>
    </node>
    <node id="join.enrich" name="Enrich Orders" type="join" join-type="left" input="input.orders">
      <input source="input.customers"/>
      <join-clause left-field="customer_id" right-field="id"/>
    </node>
    <node id="filter.active" name="Active Only" type="filter" input="join.enrich">
      <condition field="status" operator="=" value="active"/>
    </node>
    <node id="agg.totals" name="Regional Totals" type="aggregate" input="filter.active">
      <field name="Total Sales" calculation="SUM" source-field="sales"/>
      <field name="Order Count" calculation="COUNT" source-field="order_id"/>
    </node>
    <node id="output.hyper" name="Publish" type="output" input="agg.totals">
      <connection class="hyper" server=""/>
    </node>
  </nodes>
</flow>
`

// Files lists what Write produces, in write order.
var Files = []string{"sample_superstore.twb", "sample_pipeline.tfl"}

// Write creates the sample documents in dir and returns their paths.
func Write(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sample directory: %w", err)
	}

	contents := []string{workbookXML, flowXML}
	paths := make([]string, len(Files))
	for i, name := range Files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(contents[i]), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		paths[i] = path
	}
	return paths, nil
}
