package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFields(t *testing.T) {
	page := `<html><head><script>var x = "<input id='fake'>";</script></head><body>
		<form>
			<label for="name_input">姓名</label>
			<input type="text" id="name_input" name="xm">
			<input type="hidden" id="token" value="secret">
			<input type="text" name="amount" placeholder="金额">
			<select id="paytype" title="支付方式">
				<option value="10">个人转卡</option>
				<option value="2">转账汇款</option>
				<option>其他</option>
			</select>
			<textarea id="memo" placeholder="备注"></textarea>
			<button type="button" btnname="保存" guid="btn-save-1"><span>保存</span></button>
			<input type="submit" id="submit_btn" value="提交">
		</form>
		<div class="syslink" onclick="navToPrj('WF_YB6')">日常报销</div>
		<div class="plain">no handler</div>
	</body></html>`

	fields, err := ExtractFields(page)
	require.NoError(t, err)
	require.Len(t, fields, 7)

	assert.Equal(t, Field{Tag: "input", ID: "name_input", Name: "xm", Type: "text", Label: "姓名"}, fields[0])
	assert.Equal(t, "amount", fields[1].Name)
	assert.Equal(t, "金额", fields[1].Label)
	assert.Equal(t, "amount", fields[1].Key())

	sel := fields[2]
	assert.Equal(t, "select", sel.Tag)
	assert.Equal(t, "支付方式", sel.Label)
	assert.Equal(t, []Option{
		{Value: "10", Label: "个人转卡"},
		{Value: "2", Label: "转账汇款"},
		{Value: "其他", Label: "其他"},
	}, sel.Options)

	assert.Equal(t, "textarea", fields[3].Tag)
	assert.Equal(t, "备注", fields[3].Label)

	btn := fields[4]
	assert.Equal(t, "button", btn.Tag)
	assert.Equal(t, "保存", btn.BtnName)
	assert.Equal(t, "保存", btn.Label)
	assert.Equal(t, "保存", btn.Key())

	assert.Equal(t, "submit_btn", fields[5].ID)
	assert.Equal(t, "提交", fields[5].Label)

	nav := fields[6]
	assert.Equal(t, "div", nav.Tag)
	assert.Equal(t, "navToPrj('WF_YB6')", nav.OnClick)
	assert.Equal(t, "日常报销", nav.Label)
	assert.Equal(t, "", nav.Key())
}

func TestSelectors(t *testing.T) {
	assert.Equal(t, `[id="name_input"]`, ByID("name_input"))
	assert.Equal(t, `[name="a\"b"]`, ByName(`a"b`))
	assert.Equal(t, `button[btnname="保存"]`, ByAttr("button", "btnname", "保存"))
	assert.Equal(t, `[onclick*="WF_YB6"]`, ByAttrContains("", "onclick", "WF_YB6"))
	assert.Equal(t, `text=WF_YB6`, ByText("WF_YB6"))
	assert.Equal(t, `button:has-text("确定")`, HasText("button", "确定"))
	assert.Equal(t,
		`xpath=//tr[td[contains(normalize-space(.), '1142')]]//input[@type='radio'][@name='rdoacnt']`,
		XPathRowRadio("rdoacnt", "1142"))
	assert.Equal(t,
		`xpath=//tr[td[contains(normalize-space(.), '6227') and contains(normalize-space(.), '1142')]]//input[@type='radio'][@name='rdoacnt']`,
		XPathRowRadio("rdoacnt", "6227", "1142"))
	assert.Equal(t, `input[type="radio"][name="rdoacnt"]`, Radio("rdoacnt"))
	assert.Equal(t, `div.syslink[onclick*="WF_YB6"]`, OnclickContains("div.syslink", "WF_YB6"))
	assert.Equal(t, `"a'b"`, xpathLiteral(`a'b`))
	assert.Equal(t, `concat('a', "'", 'b"c')`, xpathLiteral(`a'b"c`))
}
